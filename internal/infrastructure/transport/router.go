package transport

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"vibeapi/internal/domain/entity"
)

// NewRouter builds the public handler. Paths are matched as sent: duplicate
// slashes and dot segments are part of the endpoint identity.
func NewRouter(h *MockHandler, logger *slog.Logger, mw ...mux.MiddlewareFunc) http.Handler {
	r := mux.NewRouter().SkipClean(true)
	r.Use(mw...)
	h.RegisterRoutes(r)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{
			"Content-Type", "Authorization",
			entity.HeaderAuthorization, entity.HeaderRefresh,
		}),
		handlers.ExposedHeaders([]string{HeaderRequestID}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)
	return recovery(cors(r))
}
