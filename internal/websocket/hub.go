package websocket

import (
	"sync"

	"github.com/rs/zerolog"
)

// ConnectionRecorder observes client connects and disconnects
type ConnectionRecorder interface {
	RecordWebSocketConnect()
	RecordWebSocketDisconnect()
}

// Hub maintains the set of active dashboard clients and pushes refresh
// notices to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound notices
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Most recent notice, replayed to clients that join later
	last []byte

	// Mutex to protect clients map and last
	mu sync.RWMutex

	recorder ConnectionRecorder
	logger   zerolog.Logger
}

// NewHub creates a new Hub. recorder may be nil.
func NewHub(logger zerolog.Logger, recorder ConnectionRecorder) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		recorder:   recorder,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.last != nil {
				select {
				case client.send <- h.last:
				default:
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			if h.recorder != nil {
				h.recorder.RecordWebSocketConnect()
			}
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = message
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and remove it
					h.remove(client)
					h.logger.Warn().
						Str("client_id", client.id).
						Msg("client send buffer full, closing connection")
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client; the caller holds mu
func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	if h.recorder != nil {
		h.recorder.RecordWebSocketDisconnect()
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
