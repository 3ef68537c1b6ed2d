package web

import (
	"encoding/json"
	"time"

	"github.com/codefionn/mealcalc/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is one live-feed subscriber
type Client struct {
	ID     string
	userID int64
	hub    *Hub
	conn   *websocket.Conn
	send   chan *Event
	log    *logger.Logger
}

// NewClient creates a new WebSocket client for userID
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan *Event, 64),
		log:    hub.log.WithPrefix("client"),
	}
}

// ReadPump reads client messages until the connection closes
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("WebSocket read error: %v", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply(&Event{Type: EventError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			c.reply(&Event{Type: EventPong})
		default:
			c.log.Debug("Unknown message type from %s: %q", c.ID, msg.Type)
		}
	}
}

// WritePump pumps events from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				c.log.Error("Failed to write event: %v", err)
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

// reply queues an event for this client only
func (c *Client) reply(event *Event) {
	c.hub.sendTo(c, event)
}
