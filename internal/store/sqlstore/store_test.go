package sqlstore

import (
	"context"
	"testing"

	"cipherchat/internal/apperr"
	"cipherchat/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	return s
}

func TestCreateUserConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 {
		t.Error("expected assigned user id")
	}

	dupName := &models.User{Username: "alice", Email: "other@example.com", Password: "hash"}
	if err := s.CreateUser(ctx, dupName); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("duplicate username: want Conflict, got %v", err)
	}

	dupEmail := &models.User{Username: "alice2", Email: "alice@example.com", Password: "hash"}
	if err := s.CreateUser(ctx, dupEmail); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("duplicate email: want Conflict, got %v", err)
	}
}

func TestCreateUserWithoutEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two users with no email must both succeed; the unique index only
	// applies to present values.
	for _, name := range []string{"bob", "carol"} {
		if err := s.CreateUser(ctx, &models.User{Username: name, Password: "hash"}); err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
	}
}

func TestGetUserByIdentifier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"})

	byName, err := s.GetUserByIdentifier(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	byEmail, err := s.GetUserByIdentifier(ctx, "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != byEmail.ID {
		t.Errorf("username and email lookups disagree: %d vs %d", byName.ID, byEmail.ID)
	}

	if _, err := s.GetUserByIdentifier(ctx, "nobody"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("want NotFound, got %v", err)
	}
}

func TestAddFriendEdgesIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := &models.User{Username: "alice", Password: "hash"}
	bob := &models.User{Username: "bob", Password: "hash"}
	s.CreateUser(ctx, alice)
	s.CreateUser(ctx, bob)

	for i := 0; i < 3; i++ {
		if err := s.AddFriendEdges(ctx, alice.ID, bob.ID); err != nil {
			t.Fatalf("AddFriendEdges call %d: %v", i+1, err)
		}
	}

	aliceFriends, _ := s.ListFriends(ctx, alice.ID)
	bobFriends, _ := s.ListFriends(ctx, bob.ID)
	if len(aliceFriends) != 1 || len(bobFriends) != 1 {
		t.Fatalf("expected exactly one edge each way, got %d and %d", len(aliceFriends), len(bobFriends))
	}
	if aliceFriends[0].Username != "bob" || bobFriends[0].Username != "alice" {
		t.Errorf("edges point at the wrong users: %+v %+v", aliceFriends, bobFriends)
	}
}

func TestMessageOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sender := &models.User{Username: "alice", Password: "hash"}
	s.CreateUser(ctx, sender)

	const chatID = "1:2"
	var lastID int
	for i := 0; i < 5; i++ {
		m := &models.StoredMessage{ChatID: chatID, SenderID: sender.ID, Ciphertext: "ct", IV: "iv"}
		if err := s.InsertMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
		if m.ID <= lastID {
			t.Fatalf("ids not monotonically increasing: %d after %d", m.ID, lastID)
		}
		lastID = m.ID
	}

	// A message in another chat must not leak into this one.
	s.InsertMessage(ctx, &models.StoredMessage{ChatID: "3:4", SenderID: sender.ID, Ciphertext: "ct", IV: "iv"})

	msgs, err := s.ListMessagesByChat(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Errorf("messages out of order at index %d", i)
		}
	}
}

func TestDeleteMessagesByChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sender := &models.User{Username: "alice", Password: "hash"}
	s.CreateUser(ctx, sender)

	s.InsertMessage(ctx, &models.StoredMessage{ChatID: "1:2", SenderID: sender.ID, Ciphertext: "ct", IV: "iv"})
	s.InsertMessage(ctx, &models.StoredMessage{ChatID: "3:4", SenderID: sender.ID, Ciphertext: "ct", IV: "iv"})

	if err := s.DeleteMessagesByChat(ctx, "1:2"); err != nil {
		t.Fatal(err)
	}

	cleared, _ := s.ListMessagesByChat(ctx, "1:2")
	kept, _ := s.ListMessagesByChat(ctx, "3:4")
	if len(cleared) != 0 {
		t.Errorf("expected cleared chat to be empty, got %d messages", len(cleared))
	}
	if len(kept) != 1 {
		t.Errorf("expected the other chat to keep its message, got %d", len(kept))
	}
}
