package transport

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/infrastructure/metrics"
)

const unauthorisedMessage = "Unauthorised Request, make sure to set " + entity.HeaderAuthorization

// AuthMiddleware requires the authorization header on every request except the
// landing page. With no key configured every request passes.
func AuthMiddleware(key string, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && r.URL.Path == "/" {
				next.ServeHTTP(w, r)
				return
			}
			if !entity.AuthorizationMatches(r.Header.Get(entity.HeaderAuthorization), key) {
				metrics.IncRejection("unauthorized")
				logger.Warn("unauthorized request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
				http.Error(w, unauthorisedMessage, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
