package web

import (
	"sync"
	"time"

	"github.com/codefionn/mealcalc/internal/logger"
)

// envelope addresses an event to every client of its user, or to one
// client when target is set.
type envelope struct {
	event  *Event
	target *Client
}

// Hub maintains the set of active clients and fans events out to the
// clients of the event's user.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	quit       chan struct{}
	stopOnce   sync.Once
	log        *logger.Logger
}

// NewHub creates a new hub
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Global()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		log:        log.WithPrefix("hub"),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	h.log.Info("WebSocket hub started")
	defer h.log.Info("WebSocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("Client registered: %s (user %d)", client.ID, client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("Client unregistered: %s", client.ID)

		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if env.target != nil && client != env.target {
					continue
				}
				if client.userID != env.event.UserID {
					continue
				}
				select {
				case client.send <- env.event:
				default:
					// Slow consumer, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop stops the hub and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish queues an event for the clients of event.UserID
func (h *Hub) Publish(event *Event) {
	h.enqueue(envelope{event: event})
}

// sendTo queues an event for a single client
func (h *Hub) sendTo(client *Client, event *Event) {
	event.UserID = client.userID
	h.enqueue(envelope{event: event, target: client})
}

func (h *Hub) enqueue(env envelope) {
	if env.event.Timestamp.IsZero() {
		env.event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- env:
	default:
		h.log.Warn("Broadcast channel full, dropping %s event", env.event.Type)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
