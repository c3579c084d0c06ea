package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mangad/internal/loader"
	"mangad/pkg/types"
)

const (
	eventBuffer  = 64
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeTimeout = 10 * time.Second
)

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub pushes loader events to websocket clients. It implements
// loader.EventPublisher; Publish never blocks, and a client whose buffer
// is full is disconnected.
type EventHub struct {
	mu       sync.Mutex
	clients  map[*eventClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

func NewEventHub() *EventHub {
	h := &EventHub{clients: make(map[*eventClient]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
	return h
}

// checkOrigin follows the CORS allow-list when one is set, and otherwise
// accepts requests without an Origin header or from the same host.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled && len(corsAllowedOrigins) > 0 {
		return slices.Contains(corsAllowedOrigins, "*") || slices.Contains(corsAllowedOrigins, origin)
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (h *EventHub) Publish(e loader.Event) {
	msg, err := json.Marshal(types.EventMessage{
		Name:       e.Name,
		Index:      e.Index,
		Generation: e.Generation,
		Fields:     e.Fields,
		TimeUnixMs: time.Now().UnixMilli(),
	})
	if err != nil {
		if zlog != nil {
			zlog.Warn().Err(err).Str("event", e.Name).Msg("event encode failed")
		}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
			eventClientsDropped.Inc()
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// dropLocked removes c and closes its send channel; the writer goroutine
// then sends a close frame and tears down the connection.
func (h *EventHub) dropLocked(c *eventClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	eventClientsGauge.Set(float64(len(h.clients)))
}

// ServeHTTP upgrades the request and streams events until the client goes
// away, the hub drops it or the base context set by SetBaseContext ends.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed || ctx.Err() != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event stream closed")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		return
	}
	c := &eventClient{conn: conn, send: make(chan []byte, eventBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	eventClientsGauge.Set(float64(len(h.clients)))
	h.mu.Unlock()

	go h.writePump(c)
	stop := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
	})
	defer stop()
	h.readPump(c)
}

// readPump discards client messages and unregisters on the first error.
func (h *EventHub) readPump(c *eventClient) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writePump(c *eventClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
