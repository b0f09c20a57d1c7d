package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generation
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)
	LLMDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibeapi_llm_request_duration_seconds",
			Help:    "Duration of upstream completion calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s..32s
		},
		[]string{"model"},
	)
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_generations_total",
			Help: "Mock generations by outcome",
		},
		[]string{"outcome"}, // generated|empty|generation_failed|storage_failed
	)

	// Schema cache
	SchemaLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_schema_lookups_total",
			Help: "Schema cache lookups by result",
		},
		[]string{"result"}, // hit|miss|bypass
	)
	SchemaWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_schema_writes_total",
			Help: "Schema writes by mode",
		},
		[]string{"mode"}, // replace|if_absent
	)

	// DB ops
	DBOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_db_ops_total",
			Help: "Store operations performed",
		},
		[]string{"driver", "op"}, // op: get|put|put_if_absent
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route"},
	)
	HTTPDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibeapi_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "route", "status"},
	)
	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_rejections_total",
			Help: "Requests rejected by middleware",
		},
		[]string{"reason"}, // rate_limited|unauthorized
	)

	// Websockets
	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibeapi_event_subscribers",
			Help: "Current number of connected event stream clients",
		},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibeapi_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Generation
		LLMRequests,
		LLMDurationSeconds,
		Generations,
		// Schema cache
		SchemaLookups,
		SchemaWrites,
		// DB
		DBOps,
		// HTTP
		HTTPRequests,
		HTTPDurationSeconds,
		HTTPErrors,
		Rejections,
		// WS
		EventSubscribers,
		// Errors
		Errors,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// LLM
func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

func ObserveLLMDuration(model string, d time.Duration) {
	LLMDurationSeconds.WithLabelValues(model).Observe(d.Seconds())
}

func IncGeneration(outcome string) {
	Generations.WithLabelValues(outcome).Inc()
}

// Schema cache
func IncSchemaLookup(result string) {
	SchemaLookups.WithLabelValues(result).Inc()
}

func IncSchemaWrite(mode string) {
	SchemaWrites.WithLabelValues(mode).Inc()
}

// DB ops
func IncDBOp(driver, op string) {
	DBOps.WithLabelValues(driver, op).Inc()
}

// HTTP
func ObserveHTTPRequest(method, route string, status string, d time.Duration, failed bool) {
	HTTPRequests.WithLabelValues(method, route).Inc()
	HTTPDurationSeconds.WithLabelValues(method, route, status).Observe(d.Seconds())
	if failed {
		HTTPErrors.WithLabelValues(method, route, status).Inc()
	}
}

func IncRejection(reason string) {
	Rejections.WithLabelValues(reason).Inc()
}

// Websocket
func IncEventSubscribers() {
	EventSubscribers.Inc()
}

func DecEventSubscribers() {
	EventSubscribers.Dec()
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
