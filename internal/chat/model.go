package chat

import "cipherchat/internal/models"

// Frame types exchanged over the live channel.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameMessage      = "message"
)

// Frame is one JSON message on the duplex connection, in either
// direction. Message is set only on server→client "message" frames.
type Frame struct {
	Type    string          `json:"type"`
	ChatID  string          `json:"chatId,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// Event pairs a freshly appended message with its chat for fan-out,
// both locally and across the relay.
type Event struct {
	ChatID  string          `json:"chat_id"`
	Message *models.Message `json:"message"`
}

type postMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}
