package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	clientBuffer = 8
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected WebSocket sessions of this process and
// fans events out to them. A client whose buffer is full misses the event.
type Hub struct {
	origins []string

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a Hub. originPatterns are passed to websocket.Accept;
// nil accepts same-origin requests only.
func NewHub(originPatterns ...string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		origins: originPatterns,
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ServeHTTP upgrades the request and holds the session until the client
// disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	slog.Debug("client connected", "clients", len(h.clients))
	return true
}

// readLoop discards client frames; it returns once the connection fails.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c, websocket.StatusNormalClosure)
	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "err", err)
			h.remove(c, websocket.StatusInternalError)
			return
		}
	}
}

// remove unregisters c and closes its connection. Safe to call twice.
func (h *Hub) remove(c *client, code websocket.StatusCode) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close(code, "")
	slog.Debug("client disconnected", "clients", n)
}

// Broadcast implements Broadcaster.
func (h *Hub) Broadcast(_ context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal event failed", "err", err)
		return
	}
	h.send(data)
}

func (h *Hub) send(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	// Cancelling first unblocks every pending Read and Write.
	h.cancel()
	for _, c := range clients {
		h.remove(c, websocket.StatusGoingAway)
	}
}
