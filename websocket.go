package niawave

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsMessage is one queued WebSocket message.
type wsMessage struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// WebSocketHub is a FrameSink that broadcasts every frame to browser clients:
// a JSON text message with the frame summary, followed by a binary message
// holding the spectrogram image. Clients that fall behind miss frames.
type WebSocketHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*wsClient]bool
	dropped  int
}

// NewWebSocketHub creates a hub with no clients.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
		clients: make(map[*wsClient]bool),
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams frames to it
// until the client goes away.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ProblemLogger.Printf("WebSocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan wsMessage, 16)}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	UpdateLogger.Printf("WebSocket client %s connected", r.RemoteAddr)

	go client.writePump()
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		close(client.send) // This will stop writePump
		UpdateLogger.Printf("WebSocket client %s disconnected", r.RemoteAddr)
	}()

	// Clients send nothing we use; reading detects when they close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *WebSocketHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteFrame queues the frame for every client. It never blocks on a slow client.
func (h *WebSocketHub) WriteFrame(f *Frame) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return nil
	}
	summary, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame summary: %w", err)
	}
	// The spectrogram buffer is reused next cycle, so clients get a copy.
	image := append([]byte(nil), f.Spectrogram...)
	for c := range h.clients {
		if len(c.send)+2 > cap(c.send) {
			h.dropped++
			continue
		}
		c.send <- wsMessage{websocket.TextMessage, summary}
		c.send <- wsMessage{websocket.BinaryMessage, image}
	}
	return nil
}
