package user

import (
	"encoding/json"
	"net/http"

	"cipherchat/internal/apperr"
	"cipherchat/internal/httpx"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	res, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		// Invalid credentials surface as 400 at this endpoint.
		if apperr.Is(err, apperr.Auth) {
			httpx.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials"})
			return
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.JSON(w, http.StatusOK, []any{})
		return
	}

	users, err := h.Service.SearchUsers(r.Context(), query)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}
