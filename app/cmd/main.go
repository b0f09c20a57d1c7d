package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"vibeapi/app/config"
	"vibeapi/app/usecase"
	"vibeapi/internal/infrastructure/llm"
	"vibeapi/internal/infrastructure/ratelimit"
	"vibeapi/internal/infrastructure/store"
	"vibeapi/internal/infrastructure/transport"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          "vibeapi",
	Short:        "Answer any HTTP request with a generated JSON body",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile, envFile)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := run(cmd.Context(), cfg); err != nil {
			log.Fatalf("vibeapi: %v", err)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "HCL config file (optional)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Repositories
	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	schemas, err := store.Open(openCtx, cfg.Store)
	openCancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("schema store ready", "driver", cfg.Store.Driver)

	// LLM client
	generator, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		_ = schemas.Close(context.Background())
		return fmt.Errorf("llm client: %w", err)
	}

	// Usecases / services
	events := transport.NewEventHub(logger)
	mockSvc := usecase.NewMockService(schemas, generator, cfg.Auth.AuthorizationKey, events, logger)

	// Transport
	var middlewares []mux.MiddlewareFunc
	middlewares = append(middlewares, transport.AuthMiddleware(cfg.Auth.AuthorizationKey, logger))
	if cfg.RateLimit.Enabled() {
		limiter := ratelimit.NewPerIPLimiter(ratelimit.Config{
			Max:              cfg.RateLimit.Max,
			Duration:         cfg.RateLimit.Duration,
			BehindCloudflare: cfg.RateLimit.BehindCloudflare,
		})
		defer limiter.Stop()
		middlewares = append(middlewares, ratelimit.Middleware(limiter, cfg.Auth.AuthorizationKey, logger))
	}

	handler := transport.NewMockHandler(
		mockSvc,
		transport.NewIndexPage(cfg.Site, logger),
		cfg.Server.MaxBodyBytes,
		logger,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      transport.NewRouter(handler, logger, middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var admin *http.Server
	if cfg.Admin.Addr != "" {
		admin = &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           transport.NewAdminRouter(events),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting HTTP server", "addr", addr, "model", generator.Model(), "provider", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if admin != nil {
		go func() {
			logger.Info("starting admin server", "addr", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", "err", runErr)
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if admin != nil {
		events.Close()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown error", "err", err)
		}
	}

	logger.Info("closing schema store")
	if err := schemas.Close(shutdownCtx); err != nil {
		logger.Error("store close error", "err", err)
	}

	logger.Info("service stopped")
	return runErr
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
