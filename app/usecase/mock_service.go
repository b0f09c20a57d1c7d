package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

type MockUsecase interface {
	Respond(ctx context.Context, req entity.MockRequest) (entity.MockResponse, error)
}

// EventPublisher receives one event per finished request.
type EventPublisher interface {
	Publish(ev entity.GenerationEvent)
}

var _ MockUsecase = (*MockService)(nil)

const (
	writeReplace  = "replace"
	writeIfAbsent = "if_absent"
)

// MockService answers requests with generated bodies and remembers the first
// body seen per endpoint as the shape later generations must follow.
type MockService struct {
	schemas          repository.EndpointSchemaRepository
	llm              repository.LLMGenerator
	authorizationKey string
	events           EventPublisher
	logger           *slog.Logger

	// One lock per shared handle. Store operations and generation calls are
	// serialized across all endpoints, not per key.
	storeMu sync.Mutex
	llmMu   sync.Mutex
}

func NewMockService(
	schemas repository.EndpointSchemaRepository,
	llm repository.LLMGenerator,
	authorizationKey string,
	events EventPublisher,
	logger *slog.Logger,
) *MockService {
	return &MockService{
		schemas:          schemas,
		llm:              llm,
		authorizationKey: authorizationKey,
		events:           events,
		logger:           logger,
	}
}

// ForceRefresh reports whether a request may bypass and overwrite the stored
// schema: the refresh header must be "true" and the authorization header must
// carry the configured key. Without a configured key refreshes are disabled.
func (s *MockService) ForceRefresh(h http.Header) bool {
	if h.Get(entity.HeaderRefresh) != "true" {
		return false
	}
	return entity.AuthorizationMatches(h.Get(entity.HeaderAuthorization), s.authorizationKey)
}

func (s *MockService) Respond(ctx context.Context, req entity.MockRequest) (entity.MockResponse, error) {
	// Work started for a request runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	pattern := req.Path
	method := strings.ToUpper(req.Method)
	log := s.logger.With("request_id", req.ID, "method", method, "pattern", pattern)

	cache := entity.CacheMiss
	outcome := entity.OutcomeGenerated
	defer func() {
		metrics.IncGeneration(string(outcome))
		s.publish(entity.GenerationEvent{
			RequestID:  req.ID,
			Pattern:    pattern,
			Method:     method,
			Outcome:    outcome,
			Cache:      cache,
			DurationMS: time.Since(start).Milliseconds(),
			At:         time.Now().UTC(),
		})
	}()

	forced := s.ForceRefresh(req.Headers)

	var existing *entity.EndpointSchema
	if forced {
		cache = entity.CacheBypass
	} else {
		var err error
		existing, err = s.lookup(ctx, pattern, method)
		if err != nil {
			outcome = entity.OutcomeStorageFailed
			log.Error("schema lookup failed", "err", err)
			return entity.MockResponse{}, &StorageError{Pattern: pattern, Method: method, Err: err}
		}
		if existing != nil {
			cache = entity.CacheHit
		}
	}
	metrics.IncSchemaLookup(string(cache))

	schema := ""
	if existing != nil {
		schema = existing.Schema
	}
	prompt := entity.BuildMockPrompt(req, schema)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		outcome = entity.OutcomeGenerationFailed
		log.Error("generation failed", "model", s.llm.Model(), "err", err)
		return entity.MockResponse{}, &GenerationError{Model: s.llm.Model(), Err: err}
	}
	// An empty fenced block counts as no content.
	body := entity.StripMarkdown(text)
	if strings.TrimSpace(body) == "" {
		outcome = entity.OutcomeEmpty
		log.Warn("generation returned no content", "model", s.llm.Model())
		return entity.MockResponse{}, ErrEmptyGeneration
	}

	switch {
	case forced:
		err = s.persist(ctx, writeReplace, pattern, method, body)
	case existing == nil:
		err = s.persist(ctx, writeIfAbsent, pattern, method, body)
	}
	if err != nil {
		outcome = entity.OutcomeStorageFailed
		log.Error("schema write failed", "err", err)
		return entity.MockResponse{}, err
	}

	log.Info("mock generated", "cache", cache, "duration", time.Since(start))
	return entity.MockResponse{
		Body:        body,
		ContentType: "application/json",
	}, nil
}

func (s *MockService) lookup(ctx context.Context, pattern, method string) (*entity.EndpointSchema, error) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return s.schemas.Lookup(ctx, pattern, method)
}

func (s *MockService) generate(ctx context.Context, prompt entity.Prompt) (string, error) {
	s.llmMu.Lock()
	defer s.llmMu.Unlock()
	return s.llm.Generate(ctx, prompt)
}

func (s *MockService) persist(ctx context.Context, mode, pattern, method, schema string) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	metrics.IncSchemaWrite(mode)
	var err error
	if mode == writeReplace {
		err = s.schemas.UpsertReplace(ctx, pattern, method, schema)
	} else {
		err = s.schemas.UpsertIfAbsent(ctx, pattern, method, schema)
	}
	if err != nil {
		return &PersistenceError{Pattern: pattern, Method: method, Mode: mode, Err: err}
	}
	return nil
}

func (s *MockService) publish(ev entity.GenerationEvent) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}
