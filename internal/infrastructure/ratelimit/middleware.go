package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/infrastructure/metrics"
)

// Middleware rejects clients that exceeded their budget with 429. The landing
// page and requests presenting the authorization key are never limited.
func Middleware(rl *PerIPLimiter, authorizationKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	msg := fmt.Sprintf("You are only allowed to send %d request(s) every %d seconds",
		rl.Max(), int(rl.Window().Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.Method == http.MethodGet && r.URL.Path == "/") ||
				entity.AuthorizationMatches(r.Header.Get(entity.HeaderAuthorization), authorizationKey) {
				next.ServeHTTP(w, r)
				return
			}

			ip := rl.ClientIP(r)
			if !rl.Allow(ip) {
				metrics.IncRejection("rate_limit")
				logger.Warn("rate limited", "ip", ip, "method", r.Method, "path", r.URL.Path)
				http.Error(w, msg, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
