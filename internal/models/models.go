package models

import "time"

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"-"`
}

// Friend is the public profile slice returned by friend listings.
type Friend struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Message is the decrypted form handed to clients. Content never
// touches storage; see StoredMessage.
type Message struct {
	ID        int       `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  int       `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredMessage is the at-rest form: ciphertext and IV are base64, the
// id is assigned by the store and defines the chat's total order.
type StoredMessage struct {
	ID         int
	ChatID     string
	SenderID   int
	Ciphertext string
	IV         string
	CreatedAt  time.Time
}
