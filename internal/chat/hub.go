package chat

import (
	"encoding/json"
	"log"

	"cipherchat/internal/models"
)

// Hub routes newly appended messages to the live connections subscribed
// to their chat. All state — the connection set and each connection's
// subscription set — is owned by the single goroutine running Run and
// touched through channels only, so no mutex is needed and broadcast
// never iterates a map another goroutine is mutating.
//
// Delivery is best-effort, at-most-once, to currently connected
// subscribers: a connection that subscribes after a broadcast, or whose
// outbound queue is full, does not get the message. Clients recover by
// fetching history after every subscribe.
type Hub struct {
	connections map[*Connection]map[string]bool

	register    chan *Connection
	unregister  chan *Connection
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan Event

	// relay, when set, carries broadcasts through redis so every server
	// instance (this one included) fans them out to its own clients.
	relay *Relay
}

type subscription struct {
	conn   *Connection
	chatID string
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[*Connection]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcast:   make(chan Event),
	}
}

// SetRelay must be called before Run.
func (h *Hub) SetRelay(r *Relay) { h.relay = r }

func (h *Hub) Register(c *Connection)   { h.register <- c }
func (h *Hub) Unregister(c *Connection) { h.unregister <- c }

func (h *Hub) Subscribe(c *Connection, chatID string)   { h.subscribe <- subscription{c, chatID} }
func (h *Hub) Unsubscribe(c *Connection, chatID string) { h.unsubscribe <- subscription{c, chatID} }

// Broadcast delivers msg to every open connection subscribed to chatID.
// It is called only after the message is durably stored. With a relay
// attached the event takes the redis round trip first, so all instances
// (including this one) deliver it from their subscriber loop.
func (h *Hub) Broadcast(chatID string, msg *models.Message) {
	ev := Event{ChatID: chatID, Message: msg}
	if h.relay != nil {
		if err := h.relay.Publish(ev); err != nil {
			log.Printf("relay publish failed, delivering locally: %v", err)
			h.broadcast <- ev
		}
		return
	}
	h.broadcast <- ev
}

// deliver feeds an event into the local fan-out loop. Used by the relay
// subscriber.
func (h *Hub) deliver(ev Event) { h.broadcast <- ev }

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = make(map[string]bool)

		case conn := <-h.unregister:
			// Guard against double-removal: the overflow path below may
			// already have dropped this connection.
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.send)
			}

		case sub := <-h.subscribe:
			if subs, ok := h.connections[sub.conn]; ok {
				subs[sub.chatID] = true
				h.trySend(sub.conn, mustFrame(Frame{Type: FrameSubscribed, ChatID: sub.chatID}))
			}

		case sub := <-h.unsubscribe:
			if subs, ok := h.connections[sub.conn]; ok {
				delete(subs, sub.chatID)
				h.trySend(sub.conn, mustFrame(Frame{Type: FrameUnsubscribed, ChatID: sub.chatID}))
			}

		case ev := <-h.broadcast:
			payload := mustFrame(Frame{Type: FrameMessage, ChatID: ev.ChatID, Message: ev.Message})
			for conn, subs := range h.connections {
				if !subs[ev.ChatID] {
					continue
				}
				h.trySend(conn, payload)
			}
		}
	}
}

// trySend queues payload without blocking. A connection that cannot
// keep up is dropped entirely rather than stalling delivery to others.
func (h *Hub) trySend(conn *Connection, payload []byte) {
	select {
	case conn.send <- payload:
	default:
		log.Printf("connection %s (user %d) too slow, dropping", conn.ID, conn.UserID)
		close(conn.send)
		delete(h.connections, conn)
	}
}

func mustFrame(f Frame) []byte {
	payload, err := json.Marshal(f)
	if err != nil {
		// Frame contains only marshalable fields.
		panic(err)
	}
	return payload
}
