// Package wssink implements an EventSink that fans scheduler events out to
// subscribed WebSocket clients, grounded on the connection-lifecycle shape
// of the pack's gateway websocket control plane (buffered per-connection
// send channel, dedicated write loop, ping/pong read deadlines) — simplified
// here to one-way server push since clients only observe, they never send
// scheduler commands over this socket.
package wssink

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nova-labs/agentsched/internal/eventbus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 45 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub tracks every connected WebSocket client and implements eventbus.Sink
// by broadcasting each event to all of them.
type Hub struct {
	mu     sync.Mutex
	conns  map[*conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*conn]struct{}),
		logger: logger.With("component", "wssink"),
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection with the hub until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *conn) {
	defer h.remove(c)

	c.ws.SetReadLimit(1 << 20)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() { _ = c.ws.Close() }()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// OnEvent implements eventbus.Sink by broadcasting the event as JSON to
// every connected client. A client with a full send buffer is dropped —
// a slow WebSocket reader must not stall delivery to every other client.
func (h *Hub) OnEvent(topic string, event eventbus.Event) {
	payload, err := json.Marshal(struct {
		Topic string        `json:"topic"`
		Event eventbus.Event `json:"event"`
	}{Topic: topic, Event: event})
	if err != nil {
		h.logger.Error("marshal event for websocket broadcast", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("websocket client send buffer full, dropping connection")
			delete(h.conns, c)
			close(c.send)
		}
	}
}

var _ eventbus.Sink = (*Hub)(nil)
