package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mangad/internal/loader"
	"mangad/pkg/types"
)

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status %d", resp.StatusCode)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *EventHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients=%d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventHubStreamsLoaderEvents(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	SetEventHub(hub)
	defer SetEventHub(nil)
	srv := httptest.NewServer(NewMux(&mockService{}))
	defer srv.Close()

	conn := dialEvents(t, srv)
	waitClients(t, hub, 1)

	var pub loader.EventPublisher = hub
	pub.Publish(loader.Event{Name: "large_jump", Index: 40, Generation: 3, Fields: map[string]any{"from": 2}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg types.EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Name != "large_jump" || msg.Index != 40 || msg.Generation != 3 || msg.Fields["from"] != float64(2) {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestEventHubDropsSlowClient(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	c := &eventClient{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	hub.Publish(loader.Event{Name: "a", Index: -1})
	if hub.Clients() != 1 {
		t.Fatalf("client dropped too early")
	}
	hub.Publish(loader.Event{Name: "b", Index: -1})
	if hub.Clients() != 0 {
		t.Fatalf("slow client not dropped")
	}
	if _, ok := <-c.send; !ok {
		t.Fatalf("buffered event lost")
	}
	if _, ok := <-c.send; ok {
		t.Fatalf("send channel not closed")
	}
}

func TestEventHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	SetEventHub(hub)
	defer SetEventHub(nil)
	srv := httptest.NewServer(NewMux(&mockService{}))
	defer srv.Close()

	conn := dialEvents(t, srv)
	waitClients(t, hub, 1)
	_ = conn.Close()
	waitClients(t, hub, 0)
}

func TestEventHubClosedRefusesClients(t *testing.T) {
	hub := NewEventHub()
	hub.Close()
	rr := httptest.NewRecorder()
	hub.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("code %d", rr.Code)
	}
}

func TestEventsRouteAbsentWithoutHub(t *testing.T) {
	rr := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("code %d", rr.Code)
	}
}

func TestCheckOriginFollowsCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://reader.local/events", nil)
	req.Header.Set("Origin", "http://evil.example")
	if checkOrigin(req) {
		t.Fatalf("cross origin accepted without allow-list")
	}
	req.Header.Set("Origin", "http://reader.local")
	if !checkOrigin(req) {
		t.Fatalf("same origin rejected")
	}
	SetCORSOptions(true, []string{"http://evil.example"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	req.Header.Set("Origin", "http://evil.example")
	if !checkOrigin(req) {
		t.Fatalf("allow-listed origin rejected")
	}
}

func TestEventStreamsEndWithBaseContext(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(base)
	defer SetBaseContext(nil)
	hub := NewEventHub()
	defer hub.Close()
	SetEventHub(hub)
	defer SetEventHub(nil)
	srv := httptest.NewServer(NewMux(&mockService{}))
	defer srv.Close()

	conn := dialEvents(t, srv)
	waitClients(t, hub, 1)
	cancel()
	waitClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close frame, got %v", err)
	}

	rr := httptest.NewRecorder()
	hub.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("new stream after shutdown: code %d", rr.Code)
	}
}
