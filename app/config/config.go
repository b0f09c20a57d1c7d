package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Server    HTTPServerConfig
	LLM       LLMConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Site      SiteConfig
	Admin     AdminConfig
	Log       LogConfig
}

type HTTPServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

type LLMConfig struct {
	Provider string // openai, genai
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type StoreConfig struct {
	Driver        string // sqlite, mongodb, bolt, filesystem
	Path          string // sqlite/bolt file or filesystem directory
	MongoURI      string
	MongoDatabase string
}

type AuthConfig struct {
	// AuthorizationKey guards every route but the landing page and is required
	// for forced schema refreshes. Empty disables both.
	AuthorizationKey string
}

type RateLimitConfig struct {
	Max              int
	Duration         time.Duration
	BehindCloudflare bool
}

// Enabled reports whether requests should be limited at all.
func (c RateLimitConfig) Enabled() bool {
	return c.Max > 0 && c.Duration > 0
}

type SiteConfig struct {
	PublicDir         string
	PosthogProjectKey string
	PosthogAPIHost    string
}

type AdminConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel         = "gemini-2.0-flash"
)

func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:         "0.0.0.0",
			Port:         4069,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 3 * time.Minute,
			MaxBodyBytes: 256 << 10,
		},
		LLM: LLMConfig{
			Provider: "openai",
			BaseURL:  DefaultGeminiBaseURL,
			Model:    DefaultModel,
			Timeout:  2 * time.Minute,
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			Path:          "history.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "vibeapi",
		},
		Site: SiteConfig{
			PublicDir: "./public",
		},
		Admin: AdminConfig{
			Addr: ":2112",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY env variable is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.RateLimit.Max < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must not be negative, got %d", c.RateLimit.Max))
	}
	if c.RateLimit.Duration < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_DURATION must not be negative, got %s", c.RateLimit.Duration))
	}
	switch c.Store.Driver {
	case "sqlite", "bolt", "filesystem":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("STORE_PATH is required for driver %q", c.Store.Driver))
		}
	case "mongodb":
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required for driver \"mongodb\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	switch c.LLM.Provider {
	case "openai", "genai":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}
