package middleware

import (
	"context"
	"net/http"
	"strings"

	"cipherchat/internal/apperr"
	"cipherchat/internal/httpx"
	"cipherchat/internal/user"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticator verifies a session token. Satisfied by *user.Service;
// the interface keeps this package off the service's other methods.
type Authenticator interface {
	Authenticate(token string) (*user.Identity, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(a Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

// Handle rejects the request before it reaches any handler unless a
// valid token is presented. Browsers cannot set headers on a websocket
// dial, so a ?token= query parameter is accepted as a fallback.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			httpx.Error(w, apperr.New(apperr.Auth, "missing authentication token"))
			return
		}

		identity, err := am.auth.Authenticate(tokenString)
		if err != nil {
			httpx.Error(w, apperr.New(apperr.Auth, "invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (*user.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*user.Identity)
	return id, ok
}

// WithIdentity is a test hook for handlers that read the caller from
// the context.
func WithIdentity(ctx context.Context, id *user.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
