package chat

import (
	"context"
	"log"

	"cipherchat/internal/apperr"
	"cipherchat/internal/crypto"
	"cipherchat/internal/models"
	"cipherchat/internal/store"
)

// Broadcaster receives a message after it has been durably stored.
// Satisfied by *Hub.
type Broadcaster interface {
	Broadcast(chatID string, msg *models.Message)
}

// MessageService encrypts, persists and decrypts chat messages. The
// plaintext only exists in flight: at rest there is ciphertext and an
// IV, and the store-assigned id is the authoritative order within a
// chat.
type MessageService struct {
	store store.Store
	codec *crypto.Codec
	hub   Broadcaster
}

func NewMessageService(s store.Store, codec *crypto.Codec, hub Broadcaster) *MessageService {
	return &MessageService{store: s, codec: codec, hub: hub}
}

// Append encrypts content, persists it, and only then hands the
// plaintext message to the hub. The sender gets its own plaintext back
// and never needs to decrypt its echo.
func (s *MessageService) Append(ctx context.Context, chatID string, senderID int, content string) (*models.Message, error) {
	if chatID == "" || content == "" {
		return nil, apperr.New(apperr.Validation, "chatId and content are required")
	}

	ciphertext, iv, err := s.codec.Encrypt([]byte(content))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encrypting message", err)
	}

	stored := &models.StoredMessage{
		ChatID:     chatID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
		IV:         iv,
	}
	if err := s.store.InsertMessage(ctx, stored); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        stored.ID,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: stored.CreatedAt,
	}
	// Broadcast strictly after the durable commit; never speculative.
	s.hub.Broadcast(chatID, msg)
	return msg, nil
}

// History returns the chat's messages in id order, decrypted. A record
// that fails to decrypt is logged and skipped — one corrupt row must
// not hide the rest of the conversation.
func (s *MessageService) History(ctx context.Context, chatID string) ([]models.Message, error) {
	if chatID == "" {
		return nil, apperr.New(apperr.Validation, "chatId is required")
	}

	stored, err := s.store.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(stored))
	for _, m := range stored {
		plaintext, err := s.codec.Decrypt(m.Ciphertext, m.IV)
		if err != nil {
			log.Printf("skipping message %d in chat %s: %v", m.ID, m.ChatID, err)
			continue
		}
		messages = append(messages, models.Message{
			ID:        m.ID,
			ChatID:    m.ChatID,
			SenderID:  m.SenderID,
			Content:   string(plaintext),
			CreatedAt: m.CreatedAt,
		})
	}
	return messages, nil
}

// ClearChat removes every message for a chat id.
func (s *MessageService) ClearChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return apperr.New(apperr.Validation, "chatId is required")
	}
	return s.store.DeleteMessagesByChat(ctx, chatID)
}
