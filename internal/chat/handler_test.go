package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cipherchat/internal/crypto"
	"cipherchat/internal/friend"
	"cipherchat/internal/middleware"
	"cipherchat/internal/models"
	"cipherchat/internal/store/sqlstore"
	"cipherchat/internal/user"
)

type fixture struct {
	users    *user.Service
	friends  *friend.Service
	hub      *Hub
	handler  *Handler
	messages *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	key := make([]byte, crypto.KeySize)
	copy(key, "0123456789abcdef0123456789abcdef")
	codec, err := crypto.NewCodec(key)
	if err != nil {
		t.Fatal(err)
	}

	hub := NewHub()
	go hub.Run()

	messages := NewMessageService(s, codec, hub)
	return &fixture{
		users:    user.NewService(s, "test-secret", time.Hour),
		friends:  friend.NewService(s),
		hub:      hub,
		handler:  NewHandler(hub, messages),
		messages: messages,
	}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), &user.RegisterRequest{Username: username, Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	return res.User
}

func asUser(r *http.Request, u *models.User) *http.Request {
	identity := &user.Identity{ID: u.ID, Username: u.Username}
	return r.WithContext(middleware.WithIdentity(r.Context(), identity))
}

func TestPostMessageRequiresFields(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	body, _ := json.Marshal(map[string]string{"content": "hi"})
	req := asUser(httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body)), alice)
	rr := httptest.NewRecorder()
	f.handler.PostMessage(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing chatId: got status %d, want 400", rr.Code)
	}
}

func TestGetHistoryRequiresChatID(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	req := asUser(httptest.NewRequest("GET", "/api/messages", nil), alice)
	rr := httptest.NewRecorder()
	f.handler.GetHistory(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing chatId: got status %d, want 400", rr.Code)
	}
}

// TestTwoPartyScenario walks the whole pipeline: registration, friend
// link, live subscription, authenticated post, fan-out, and history.
func TestTwoPartyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	// alice adds bob; the edge is visible from bob's side too.
	if _, err := f.friends.AddFriend(ctx, alice.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	bobFriends, err := f.friends.ListFriends(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bobFriends) != 1 || bobFriends[0].Username != "alice" {
		t.Fatalf("bob's friends = %+v, want [alice]", bobFriends)
	}

	// Both derive the same chat id regardless of argument order.
	chatID := ChatID(alice.ID, bob.ID)
	if chatID != ChatID(bob.ID, alice.ID) {
		t.Fatal("chat id is not symmetric")
	}

	// bob is live and subscribed.
	bobConn := attach(t, f.hub, chatID)

	// alice posts "hi" over the REST surface.
	body, _ := json.Marshal(map[string]string{"chatId": chatID, "content": "hi"})
	req := asUser(httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body)), alice)
	rr := httptest.NewRecorder()
	f.handler.PostMessage(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("PostMessage status %d: %s", rr.Code, rr.Body)
	}

	// bob receives exactly one live message frame with the plaintext.
	frame := recvFrame(t, bobConn)
	if frame.Type != FrameMessage || frame.Message == nil || frame.Message.Content != "hi" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if frame.Message.SenderID != alice.ID {
		t.Errorf("frame sender = %d, want %d", frame.Message.SenderID, alice.ID)
	}

	// More traffic, then history comes back decrypted and in order.
	for _, content := range []string{"how are you?", "see you"} {
		body, _ := json.Marshal(map[string]string{"chatId": chatID, "content": content})
		rr := httptest.NewRecorder()
		f.handler.PostMessage(rr, asUser(httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body)), alice))
		if rr.Code != http.StatusOK {
			t.Fatalf("PostMessage status %d", rr.Code)
		}
		recvFrame(t, bobConn)
	}

	histReq := asUser(httptest.NewRequest("GET", "/api/messages?chatId="+chatID, nil), bob)
	histRR := httptest.NewRecorder()
	f.handler.GetHistory(histRR, histReq)
	if histRR.Code != http.StatusOK {
		t.Fatalf("GetHistory status %d: %s", histRR.Code, histRR.Body)
	}

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(histRR.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := []string{"hi", "how are you?", "see you"}
	if len(resp.Messages) != len(want) {
		t.Fatalf("history has %d messages, want %d", len(resp.Messages), len(want))
	}
	for i, m := range resp.Messages {
		if m.Content != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, m.Content, want[i])
		}
		if i > 0 && m.ID <= resp.Messages[i-1].ID {
			t.Errorf("history ids not ascending at index %d", i)
		}
	}
}
