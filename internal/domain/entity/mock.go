package entity

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// Protocol-control headers. They steer the service and are never forwarded into prompts.
const (
	HeaderAuthorization = "X-VibeApi-Authorization"
	HeaderRefresh       = "X-VibeApi-Refresh"
)

// MockRequest is an inbound request that should be answered with generated data.
type MockRequest struct {
	ID      string
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    string
}

// FullPath is the path as shown to the model, including the query string.
func (r MockRequest) FullPath() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

type MockResponse struct {
	Body        string
	ContentType string
}

type CacheResult string

const (
	CacheHit    CacheResult = "hit"
	CacheMiss   CacheResult = "miss"
	CacheBypass CacheResult = "bypass"
)

type GenerationOutcome string

const (
	OutcomeGenerated        GenerationOutcome = "generated"
	OutcomeEmpty            GenerationOutcome = "empty"
	OutcomeGenerationFailed GenerationOutcome = "generation_failed"
	OutcomeStorageFailed    GenerationOutcome = "storage_failed"
)

// GenerationEvent describes one finished pass through the mock pipeline.
type GenerationEvent struct {
	RequestID  string            `json:"request_id"`
	Pattern    string            `json:"pattern"`
	Method     string            `json:"method"`
	Outcome    GenerationOutcome `json:"outcome"`
	Cache      CacheResult       `json:"cache"`
	DurationMS int64             `json:"duration_ms"`
	At         time.Time         `json:"at"`
}

// AuthorizationMatches compares a presented authorization header with the
// configured key: surrounding whitespace and case are ignored, and the
// comparison runs in constant time. An empty key never matches.
func AuthorizationMatches(presented, key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	presented = strings.ToLower(strings.TrimSpace(presented))
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}
