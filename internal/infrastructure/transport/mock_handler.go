package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"vibeapi/app/usecase"
	"vibeapi/internal/domain/entity"
	"vibeapi/internal/infrastructure/metrics"
)

const (
	routeIndex = "index"
	routeMock  = "mock"

	HeaderRequestID = "X-Request-Id"
)

type MockHandler struct {
	service      usecase.MockUsecase
	index        *IndexPage
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewMockHandler(
	service usecase.MockUsecase,
	index *IndexPage,
	maxBodyBytes int64,
	logger *slog.Logger,
) *MockHandler {
	return &MockHandler{
		service:      service,
		index:        index,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (h *MockHandler) withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, route, strconv.Itoa(rw.status), time.Since(start), rw.status >= 400)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RegisterRoutes mounts the landing page on GET / and sends everything else,
// any method and any path, to the mock pipeline.
func (h *MockHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.withMetrics(routeIndex, h.handleIndex)).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(h.withMetrics(routeMock, h.handleMock))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /
func (h *MockHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.index.Render())
}

// * /{anything}
func (h *MockHandler) handleMock(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(HeaderRequestID, id)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IncRejection("body_too_large")
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("read request body failed", "request_id", id, "err", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	body := string(raw)
	if !utf8.Valid(raw) {
		body = ""
	}

	resp, err := h.service.Respond(r.Context(), entity.MockRequest{
		ID:      id,
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header,
		Body:    body,
	})
	if err != nil {
		code, msg := errorResponse(err)
		metrics.IncError("mock", errorType(err))
		http.Error(w, msg, code)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, resp.Body)
}

// errorResponse maps pipeline failures to a status and a short message that
// never includes upstream details.
func errorResponse(err error) (int, string) {
	var (
		storageErr *usecase.StorageError
		genErr     *usecase.GenerationError
		persistErr *usecase.PersistenceError
	)
	switch {
	case errors.Is(err, usecase.ErrEmptyGeneration):
		return http.StatusNotFound, "No response text found"
	case errors.As(err, &genErr):
		return http.StatusInternalServerError, "Failed to get completion"
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, "Failed to insert schema into DB"
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, "Failed to read schema from DB"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func errorType(err error) string {
	var (
		storageErr *usecase.StorageError
		genErr     *usecase.GenerationError
		persistErr *usecase.PersistenceError
	)
	switch {
	case errors.Is(err, usecase.ErrEmptyGeneration):
		return "empty"
	case errors.As(err, &genErr):
		return "generation"
	case errors.As(err, &persistErr):
		return "persistence"
	case errors.As(err, &storageErr):
		return "storage"
	default:
		return "unknown"
	}
}
