package store

import (
	"context"

	"cipherchat/internal/models"
)

// Store is the storage capability the rest of the system depends on.
// Both SQL backends implement it; nothing above this interface knows
// which driver is wired in.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	// Friend operations. AddFriendEdges inserts both directed edges in
	// one transaction and is idempotent.
	AddFriendEdges(ctx context.Context, ownerID, friendID int) error
	ListFriends(ctx context.Context, ownerID int) ([]models.Friend, error)

	// Message operations. InsertMessage assigns ID and CreatedAt.
	InsertMessage(ctx context.Context, msg *models.StoredMessage) error
	ListMessagesByChat(ctx context.Context, chatID string) ([]models.StoredMessage, error)
	DeleteMessagesByChat(ctx context.Context, chatID string) error
}
