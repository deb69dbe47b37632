package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldash/internal/platform/auth"
)

func newTestClient(id string, topics ...string) *Client {
	return &Client{
		ID:     id,
		Topics: topics,
		Send:   make(chan []byte, 16),
	}
}

// ---------------------------------------------------------------------------
// Hub tests
// ---------------------------------------------------------------------------

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient("client-1", SessionTopic("s1"))

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(SessionTopic("s1")) != 1 {
		t.Fatalf("expected 1 client on session/s1, got %d", hub.TopicCount(SessionTopic("s1")))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient("client-2", SessionTopic("s2"))

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(SessionTopic("s2")) != 0 {
		t.Fatalf("expected 0 clients on session/s2, got %d", hub.TopicCount(SessionTopic("s2")))
	}

	// Closed channel reads return immediately.
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed after unregister")
	}

	// Second unregister must not panic on the closed channel.
	hub.Unregister(client)
}

func TestHub_PublishReachesOnlyOwnSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	mine := newTestClient("mine", SessionTopic("alpha"))
	other := newTestClient("other", SessionTopic("beta"))
	hub.Register(mine)
	hub.Register(other)

	evt, err := NewSessionEvent(EventStepProgress, "alpha", map[string]interface{}{"index": 0, "total": 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	select {
	case msg := <-mine.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != EventStepProgress {
			t.Errorf("expected %s, got %s", EventStepProgress, received.Type)
		}
		if received.SessionID != "alpha" {
			t.Errorf("expected session alpha, got %s", received.SessionID)
		}
		if !strings.Contains(string(received.Data), `"total":6`) {
			t.Errorf("expected data to carry total, got %s", received.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-other.Send:
		t.Fatal("other session should not have received event")
	default:
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c1 := newTestClient("all-1", SessionTopic("a"))
	c2 := newTestClient("all-2", SessionTopic("b"))
	hub.Register(c1)
	hub.Register(c2)

	hub.BroadcastAll(Event{Type: EventShutdown, Timestamp: time.Now()})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if received.Type != EventShutdown {
				t.Fatalf("expected %s, got %s", EventShutdown, received.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{SessionTopic("slow")}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Broadcast(SessionTopic("slow"), Event{Type: EventStepProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestHub_BroadcastToEmptyTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Broadcast(SessionTopic("nobody"), Event{Type: EventRunCompleted})
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	const n = 100

	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = newTestClient("c", SessionTopic("shared"))
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	wg.Wait()

	if hub.TopicCount(SessionTopic("shared")) != n {
		t.Fatalf("expected %d subscribers, got %d", n, hub.TopicCount(SessionTopic("shared")))
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after concurrent unregister, got %d", hub.ClientCount())
	}
}

func TestNewSessionEvent_NilData(t *testing.T) {
	evt, err := NewSessionEvent(EventRunCleared, "s", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Topic != "session/s" {
		t.Errorf("expected topic session/s, got %s", evt.Topic)
	}
	if evt.Data != nil {
		t.Errorf("expected no data, got %s", evt.Data)
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestHandler_RejectsMissingSession(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/progress", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.HandleConnect(c)
	if err == nil {
		t.Fatal("expected error without a session")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_SubscribesToSessionTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := NewHandler(hub)

	e := echo.New()
	g := e.Group("/ws", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(auth.WithSessionID(c.Request().Context(), "sess-42")))
			return next(c)
		}
	})
	h.RegisterRoutes(g)

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount(SessionTopic("sess-42")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(SessionTopic("sess-42")) != 1 {
		t.Fatalf("expected connection on session topic, got %d", hub.TopicCount(SessionTopic("sess-42")))
	}

	evt, _ := NewSessionEvent(EventRunCompleted, "sess-42", map[string]string{"query_type": "population"})
	hub.Broadcast(evt.Topic, evt)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var received Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if received.Type != EventRunCompleted {
		t.Errorf("expected %s, got %s", EventRunCompleted, received.Type)
	}
}
