package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"vibeapi/internal/infrastructure/metrics"
)

// NewAdminRouter serves operational endpoints on a listener separate from the
// mock catch-all.
func NewAdminRouter(hub *EventHub) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/events", hub).Methods(http.MethodGet)
	return r
}

// GET /healthz
func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
