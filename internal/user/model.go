package user

import "cipherchat/internal/models"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginRequest accepts the identifier under either key; clients send
// whichever they have.
type LoginRequest struct {
	Username        string `json:"username"`
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

func (r *LoginRequest) Identifier() string {
	if r.UsernameOrEmail != "" {
		return r.UsernameOrEmail
	}
	return r.Username
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Identity is the verified caller attached to a request context.
type Identity struct {
	ID       int
	Username string
	Email    string
}
