package dev

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Frame is one message pushed to connected browsers. Event names carry
// the routing; Data is event-specific (raw CSS for style updates).
type Frame struct {
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// Hub manages websocket connections for hot updates. It implements the
// pipeline's Broadcaster. Each connection carries its own write lock:
// gorilla permits a single concurrent writer per connection, and
// broadcasts arrive from whichever request goroutine ran a transform.
type Hub struct {
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// NewHub creates a hot update hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// HandleWebSocket handles the websocket upgrade and holds the
// connection until the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends a named event with a payload to all clients.
func (h *Hub) Broadcast(event, payload string) {
	data, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return
	}

	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.clients))
	for conn, wmu := range h.clients {
		targets = append(targets, target{conn: conn, wmu: wmu})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.wmu.Lock()
		err := t.conn.WriteMessage(websocket.TextMessage, data)
		t.wmu.Unlock()
		if err != nil {
			h.mu.Lock()
			delete(h.clients, t.conn)
			h.mu.Unlock()
			t.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
