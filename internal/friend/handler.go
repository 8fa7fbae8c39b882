package friend

import (
	"encoding/json"
	"net/http"

	"cipherchat/internal/apperr"
	"cipherchat/internal/httpx"
	"cipherchat/internal/middleware"
	"cipherchat/internal/models"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

type addFriendRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.New(apperr.Auth, "unauthorized"))
		return
	}

	var req addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	f, err := h.Service.AddFriend(r.Context(), identity.ID, req.Identifier)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"friend": f})
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.New(apperr.Auth, "unauthorized"))
		return
	}

	friends, err := h.Service.ListFriends(r.Context(), identity.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"friends": friends})
}
