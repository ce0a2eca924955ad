package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans activity events out to connected dashboard clients.
type Hub struct {
	mu           sync.RWMutex
	conns        map[*conn]struct{}
	pingInterval time.Duration
	upgrader     websocket.Upgrader
	logger       *zap.Logger
}

type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// NewHub builds the subscriber hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		conns:        make(map[*conn]struct{}),
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler upgrades the request and registers the subscriber until it drops.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &conn{ws: ws}
		h.add(c)
		defer h.remove(c)

		// Subscribers only receive; drain the read side until close.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// Broadcast sends the event to every subscriber. Dead connections are dropped.
func (h *Hub) Broadcast(event any) {
	h.mu.RLock()
	subscribers := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.writeJSON(event); err != nil {
			h.logger.Debug("dropping dead subscriber", zap.Error(err))
			h.remove(c)
		}
	}
}

// Run pings subscribers until context cancellation to keep connections alive.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			for c := range h.conns {
				_ = c.ping()
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		_ = c.ws.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.conns {
		_ = c.ws.Close()
		delete(h.conns, c)
	}
	h.mu.Unlock()
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}
