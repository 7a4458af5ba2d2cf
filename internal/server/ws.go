package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/palmscroll/internal/app"
	"github.com/ayusman/palmscroll/internal/logger"
)

const (
	// clientBuffer is how many status messages a slow client may lag behind
	// before messages to it are dropped.
	clientBuffer = 32
	writeTimeout = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHub broadcasts every FrameStatus to WebSocket clients. It is an
// app.Observer; Observe never blocks the frame loop.
type StatusHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	last    []byte
}

// NewStatusHub creates an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Observe queues status for every connected client. Clients whose buffer
// is full miss this message.
func (h *StatusHub) Observe(status app.FrameStatus) {
	msg, err := json.Marshal(status)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = msg
	for _, out := range h.clients {
		select {
		case out <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams statuses until the client
// goes away. A new client first receives the latest status, if any.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	out := make(chan []byte, clientBuffer)

	h.mu.Lock()
	if h.last != nil {
		out <- h.last
	}
	h.clients[conn] = out
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reads only detect the close; clients have nothing to say.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
