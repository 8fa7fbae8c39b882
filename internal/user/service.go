package user

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cipherchat/internal/apperr"
	"cipherchat/internal/models"
	"cipherchat/internal/store"
)

var errInvalidCredentials = apperr.New(apperr.Auth, "invalid credentials")

type Service struct {
	store     store.Store
	jwtSecret []byte
	tokenTTL  time.Duration

	// dummyHash is compared against when login hits an unknown
	// identifier, so "no such user" and "wrong password" cost the same.
	dummyHash []byte
}

type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func NewService(s store.Store, jwtSecret string, tokenTTL time.Duration) *Service {
	dummy, err := bcrypt.GenerateFromPassword([]byte("cipherchat-dummy"), bcrypt.DefaultCost)
	if err != nil {
		panic(err) // bcrypt only fails on an invalid cost
	}
	return &Service{
		store:     s,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		dummyHash: dummy,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, "username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hashing password", err)
	}

	u := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	identifier := req.Identifier()
	if identifier == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, "username and password are required")
	}

	u, err := s.store.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			// Burn a comparison anyway; callers must not be able to
			// probe which identifiers are registered.
			bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: u, Token: token}, nil
}

func (s *Service) issueToken(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cipherchat",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "signing token", err)
	}
	return signed, nil
}

// Authenticate verifies a session token and returns the identity it
// asserts.
func (s *Service) Authenticate(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.Auth, "invalid token", err)
	}
	return &Identity{ID: claims.ID, Username: claims.Username, Email: claims.Email}, nil
}

func (s *Service) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.store.SearchUsers(ctx, query)
}
