package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"saral/services/gateway/internal/app"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Hub fans workspace events out to websocket clients. It implements
// app.Publisher.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan app.Event
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a hub. Browsers from origins other than the page host are
// refused unless listed in allowedOrigins.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[string]map[*wsClient]struct{})}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, origin := range allowedOrigins {
			allowed[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[origin]
			return ok || strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
		}
	}
	return h
}

// Publish queues ev for every client of the workspace. Slow clients drop
// events rather than block the publisher.
func (h *Hub) Publish(workspaceID string, ev app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[workspaceID] {
		select {
		case c.send <- ev:
		default:
			slog.Warn("websocket client lagging, event dropped", "workspace", workspaceID, "type", ev.Type)
		}
	}
}

// Clients returns the number of connected clients of a workspace.
func (h *Hub) Clients(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

// ServeWS upgrades the request and streams the workspace's events until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, workspaceID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	c := &wsClient{conn: conn, send: make(chan app.Event, clientBuffer)}
	if !h.register(workspaceID, c) {
		_ = conn.Close()
		return
	}
	go h.writeLoop(c)
	h.readLoop(workspaceID, c)
}

func (h *Hub) register(workspaceID string, c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[workspaceID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[workspaceID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) unregister(workspaceID string, c *wsClient) {
	h.mu.Lock()
	if set, ok := h.clients[workspaceID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, workspaceID)
		}
	}
	h.mu.Unlock()
	c.stop()
}

// readLoop discards client messages and returns when the connection fails.
func (h *Hub) readLoop(workspaceID string, c *wsClient) {
	defer h.unregister(workspaceID, c)
	c.conn.SetReadLimit(4096)
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

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := h.clients
	h.clients = make(map[string]map[*wsClient]struct{})
	h.mu.Unlock()
	for _, set := range all {
		for c := range set {
			c.stop()
		}
	}
}
