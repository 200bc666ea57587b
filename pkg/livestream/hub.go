// Package livestream pushes completed IMU samples to websocket subscribers.
package livestream

import (
	"net/http"
	"sync"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Time allowed to write a message to a client
var writeWait = 10 * time.Second

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans samples out to every connected websocket client.
type Hub struct {
	upgrader websocket.Upgrader
	latest   func() *types.Sample

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// NewHub returns a hub. latest, when not nil, supplies the sample sent to a
// client right after it connects.
func NewHub(latest func() *types.Sample) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins, the stream is read-only
			},
		},
		latest:  latest,
		clients: make(map[*websocket.Conn]*client),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := h.add(conn)

	if h.latest != nil {
		if sample := h.latest(); sample != nil {
			if err := c.send(sample.ToJsonBytes()); err != nil {
				h.remove(conn)
				return
			}
		}
	}

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) Broadcast(sample *types.Sample) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	data := sample.ToJsonBytes()
	for _, c := range clients {
		if err := c.send(data); err != nil {
			h.remove(c.conn)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}
