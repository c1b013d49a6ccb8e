package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

// Push message types.
const (
	MessageTypeDetection = "detection"
	MessageTypeNotice    = "notice"
)

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

// Message is one push update sent to WebSocket clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type pushClient struct {
	id   string
	send chan Message
}

// Hub fans out store inserts and session notices to connected WebSocket
// clients. A client whose buffer is full misses the message instead of
// slowing the others down.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*pushClient
	closed  bool
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub. Message timestamps are read from clock.
func NewHub(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*pushClient),
		clock:   clock,
		logger:  logger.With("component", "push_hub"),
		metrics: metrics,
	}
}

// PublishDetection broadcasts a stored detection. It has the signature of a
// store subscriber.
func (h *Hub) PublishDetection(d domain.Detection) {
	h.broadcast(Message{Type: MessageTypeDetection, Data: d, Timestamp: h.clock.Now().UTC()})
}

// Notify broadcasts a session notice.
func (h *Hub) Notify(n domain.Notice) {
	h.broadcast(Message{Type: MessageTypeNotice, Data: n, Timestamp: h.clock.Now().UTC()})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	h.metrics.PushClients.Set(0)
}

// ServeHTTP upgrades the request and streams messages until the client goes
// away or the hub is closed. The stream is one-way: a client that sends a
// data message is disconnected.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The server read/write timeouts would otherwise carry over to the
	// hijacked connection and cut it after a few seconds.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("accept websocket failed", "error", err)
		return
	}

	c := &pushClient{id: uuid.NewString(), send: make(chan Message, clientBuffer)}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck // best-effort close
		return
	}
	defer h.unregister(c)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck // best-effort close
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck // best-effort close
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				h.logger.Debug("push write failed", "client_id", c.id, "error", err)
				conn.Close(websocket.StatusInternalError, "write failed") //nolint:errcheck // best-effort close
				return
			}
		}
	}
}

func (h *Hub) register(c *pushClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.PushClients.Set(float64(len(h.clients)))
	h.logger.Info("push client connected", "client_id", c.id, "total_clients", len(h.clients))
	return true
}

func (h *Hub) unregister(c *pushClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.metrics.PushClients.Set(float64(len(h.clients)))
	h.logger.Info("push client disconnected", "client_id", c.id, "total_clients", len(h.clients))
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("push client buffer full, dropping message", "client_id", c.id, "type", msg.Type)
		}
	}
}
