// Package realtime pushes per-user change events to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/queue"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

type client struct {
	userID uint64
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks the open connections of each user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint64]map[*client]struct{}
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub returns an empty hub.  allowedOrigins restricts browser origins;
// empty allows any.
func NewHub(log zerolog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients: make(map[uint64]map[*client]struct{}),
		log:     log.With().Str("component", "realtime").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == origin || o == "*" {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Connections returns the number of open connections of a user.
func (h *Hub) Connections(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send delivers payload to every connection of userID and returns how
// many accepted it.  A connection whose buffer is full is dropped.
func (h *Hub) Send(userID uint64, payload []byte) int {
	h.mu.RLock()
	var slow []*client
	n := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			n++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.log.Warn().Uint64("user_id", userID).Msg("dropping slow client")
		h.unregister(c)
	}
	return n
}

// NotificationHandler is the queue handler for notifications.changed.
func (h *Hub) NotificationHandler() queue.Handler {
	return func(_ context.Context, body []byte) error {
		var ev queue.NotificationChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.UserID == 0 {
			return fmt.Errorf("event without user")
		}
		h.Send(ev.UserID, body)
		return nil
	}
}

// Serve upgrades the request and streams events for userID until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Close disconnects everybody.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeConnections.Inc()
	h.log.Debug().Uint64("user_id", c.userID).Msg("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set := h.clients[c.userID]
	_, ok := set[c]
	if ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	if ok {
		c.close()
		metrics.RealtimeConnections.Dec()
		h.log.Debug().Uint64("user_id", c.userID).Msg("client disconnected")
	}
}

// readPump only services control frames; clients never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
