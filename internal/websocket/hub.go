package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Event is one frame pushed to the view.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*client
	upgrader    websocket.Upgrader
	logger      *zap.SugaredLogger
	onConnect   func() []Event
}

type client struct {
	conn *websocket.Conn
	// writeMu serializes writes; gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

// NewHub builds a hub that accepts view connections from allowedOrigin ("" allows any).
// onConnect, if set, returns the events a new view receives immediately.
func NewHub(allowedOrigin string, logger *zap.SugaredLogger, onConnect func() []Event) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
		logger:    logger,
		onConnect: onConnect,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.New()
	c := &client{conn: conn}
	h.register(id, c)

	if h.onConnect != nil {
		for _, ev := range h.onConnect() {
			h.write(id, c, ev)
		}
	}

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(id uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[id] = c
	h.logger.Debugw("websocket connected", "conn_id", id, "total", len(h.connections))
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.connections[id]
	delete(h.connections, id)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		h.logger.Debugw("websocket disconnected", "conn_id", id)
	}
}

// Broadcast sends ev to every connected view.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	ev := Event{Type: eventType, Data: data}

	h.mu.RLock()
	targets := make(map[uuid.UUID]*client, len(h.connections))
	for id, c := range h.connections {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		h.write(id, c, ev)
	}
}

func (h *Hub) write(id uuid.UUID, c *client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorw("failed to encode websocket event", "type", ev.Type, "error", err)
		return
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err != nil {
		h.logger.Debugw("dropping websocket after failed write", "conn_id", id, "error", err)
		h.unregister(id)
	}
}

// Count reports the number of connected views.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every view.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.connections
	h.connections = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}
