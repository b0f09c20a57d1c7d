package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeapi/app/config"
	"vibeapi/internal/domain/entity"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOpenAIGenerator("test-key", srv.URL+"/", "gemini-2.0-flash", 5*time.Second, logger).(*OpenAIGenerator)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got chatRequest
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"id\":1}"},"finish_reason":"stop"}]}`))
	})

	text, err := g.Generate(context.Background(), entity.Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, text)

	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "usr"}, got.Messages[1])
}

func TestOpenAIGenerator_EmptyResults(t *testing.T) {
	bodies := map[string]string{
		"no choices":   `{"choices":[]}`,
		"null content": `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
		"empty string": `{"choices":[{"message":{"role":"assistant","content":""}}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			text, err := g.Generate(context.Background(), entity.Prompt{})
			require.NoError(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestOpenAIGenerator_UpstreamError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	})

	_, err := g.Generate(context.Background(), entity.Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIGenerator_BadJSON(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := g.Generate(context.Background(), entity.Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestNew_Providers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g, err := New(context.Background(), config.LLMConfig{Provider: ProviderOpenAI, APIKey: "k", BaseURL: "http://x", Model: "m"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "m", g.Model())

	_, err = New(context.Background(), config.LLMConfig{Provider: ProviderOpenAI}, logger)
	assert.Error(t, err)

	_, err = New(context.Background(), config.LLMConfig{Provider: "bogus", APIKey: "k"}, logger)
	assert.Error(t, err)
}
