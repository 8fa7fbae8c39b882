package friend

import (
	"context"

	"cipherchat/internal/apperr"
	"cipherchat/internal/models"
	"cipherchat/internal/store"
)

// Service maintains the symmetric friendship graph. A friendship is
// always two directed edges created together; AddFriend is idempotent,
// so re-adding an existing friend succeeds without changing the graph.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// AddFriend resolves identifier (username or email) and links the
// target to ownerID in both directions.
func (s *Service) AddFriend(ctx context.Context, ownerID int, identifier string) (*models.Friend, error) {
	if identifier == "" {
		return nil, apperr.New(apperr.Validation, "identifier is required")
	}

	target, err := s.store.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if target.ID == ownerID {
		return nil, apperr.New(apperr.Validation, "cannot add yourself as a friend")
	}

	if err := s.store.AddFriendEdges(ctx, ownerID, target.ID); err != nil {
		return nil, err
	}
	return &models.Friend{ID: target.ID, Username: target.Username}, nil
}

func (s *Service) ListFriends(ctx context.Context, ownerID int) ([]models.Friend, error) {
	return s.store.ListFriends(ctx, ownerID)
}
