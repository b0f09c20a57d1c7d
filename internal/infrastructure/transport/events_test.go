package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibeapi/internal/domain/entity"
)

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEventHub_BroadcastsEvents(t *testing.T) {
	hub := NewEventHub(discardLogger())
	srv := httptest.NewServer(NewAdminRouter(hub))
	defer srv.Close()

	conn := dialEvents(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(entity.GenerationEvent{
		RequestID: "r1",
		Pattern:   "/users",
		Method:    "GET",
		Outcome:   entity.OutcomeGenerated,
		Cache:     entity.CacheMiss,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got entity.GenerationEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "/users", got.Pattern)
	assert.Equal(t, entity.CacheMiss, got.Cache)
}

func TestEventHub_ClientDisconnectRemovesSubscriber(t *testing.T) {
	hub := NewEventHub(discardLogger())
	srv := httptest.NewServer(NewAdminRouter(hub))
	defer srv.Close()

	conn := dialEvents(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewEventHub(discardLogger())
	sub := &subscriber{send: make(chan []byte, 1)}
	hub.subscribers[sub] = struct{}{}

	hub.Publish(entity.GenerationEvent{Pattern: "/a"})
	hub.Publish(entity.GenerationEvent{Pattern: "/b"})

	assert.Equal(t, 0, hub.Subscribers())
	_, open := <-sub.send
	assert.True(t, open, "buffered event is still delivered")
	_, open = <-sub.send
	assert.False(t, open)
}

func TestEventHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewEventHub(discardLogger())
	hub.Publish(entity.GenerationEvent{Pattern: "/none"})
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())
}

func TestAdmin_HealthAndMetrics(t *testing.T) {
	r := NewAdminRouter(NewEventHub(discardLogger()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vibeapi_")
}
