package chat

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
	sendQueueSize  = 256
)

// Connection is one client's live channel: the websocket plus the
// bounded outbound queue the hub writes into. The subscription set
// lives inside the hub, which owns it exclusively.
type Connection struct {
	ID     string
	UserID int

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewConnection builds a connection around ws. Tests pass a nil
// websocket and read h's output straight from the send queue.
func NewConnection(h *Hub, ws *websocket.Conn, userID int) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    h,
		conn:   ws,
		send:   make(chan []byte, sendQueueSize),
	}
}

// readPump consumes frames from the websocket. Subscribe and
// unsubscribe frames mutate this connection's subscription set via the
// hub; malformed or unknown frames are dropped without closing the
// connection.
func (c *Connection) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("connection %s read error: %v", c.ID, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case FrameSubscribe:
			if frame.ChatID != "" {
				c.hub.Subscribe(c, frame.ChatID)
			}
		case FrameUnsubscribe:
			if frame.ChatID != "" {
				c.hub.Unsubscribe(c, frame.ChatID)
			}
		default:
			// Unknown frame types are ignored.
		}
	}
}

// writePump drains the send queue to the websocket and keeps the
// connection alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
