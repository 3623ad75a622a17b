package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type liveClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveClient) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// LiveHandler pushes every evaluation result to WebSocket clients.
type LiveHandler struct {
	clients map[string]*liveClient
	mu      sync.RWMutex
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler() *LiveHandler {
	return &LiveHandler{
		clients: make(map[string]*liveClient),
	}
}

// liveMessage is the envelope sent to clients.
type liveMessage struct {
	Type   string         `json:"type"`
	Result posture.Result `json:"result"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &liveClient{id: uuid.New().String(), conn: conn}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	log.WithField("client", client.id).Debug("Live client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()
		log.WithField("client", client.id).Debug("Live client disconnected")
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends res to every connected client. Clients that fail to
// receive it are dropped.
func (h *LiveHandler) Broadcast(res posture.Result) {
	msg, err := json.Marshal(liveMessage{Type: "result", Result: res})
	if err != nil {
		log.Warnf("Error encoding live result: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*liveClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			log.WithField("client", c.id).Debugf("Dropping live client: %v", err)
			c.conn.Close()
		}
	}
}

// Close disconnects every client.
func (h *LiveHandler) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}
