package chat

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"cipherchat/internal/apperr"
	"cipherchat/internal/httpx"
	"cipherchat/internal/middleware"
	"cipherchat/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer
	},
}

type Handler struct {
	hub      *Hub
	messages *MessageService
}

func NewHandler(hub *Hub, messages *MessageService) *Handler {
	return &Handler{hub: hub, messages: messages}
}

// PostMessage appends one message and returns the sender's echo. Live
// fan-out to subscribers happens inside the service after the commit.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.New(apperr.Auth, "unauthorized"))
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	msg, err := h.messages.Append(r.Context(), req.ChatID, identity.ID, req.Content)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]*models.Message{"message": msg})
}

// GetHistory returns a chat's full history, ascending by message id.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")

	messages, err := h.messages.History(r.Context(), chatID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

// ClearChat deletes all messages for a chat id.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")

	if err := h.messages.ClearChat(r.Context(), chatID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// ServeWs upgrades the request and attaches the connection to the hub
// with an empty subscription set. History is not replayed here; clients
// fetch it over REST after each subscribe.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.New(apperr.Auth, "unauthorized"))
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(h.hub, ws, identity.ID)
	h.hub.Register(conn)

	go conn.writePump()
	go conn.readPump()
}
