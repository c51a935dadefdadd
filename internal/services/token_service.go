package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bike-market/internal/status"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is what a verified credential proves about the caller. It carries
// no role: roles are always read from the user record.
type Identity struct {
	Email string
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) Issue(email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("%w: empty subject", status.ErrInvalidInput)
	}

	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates an Authorization header value of the form "Bearer <token>".
func (s *TokenService) Verify(header string) (Identity, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return Identity{}, status.ErrUnauthenticated
	}

	t, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, errors.Join(status.ErrUnauthenticated, err)
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Email == "" {
		return Identity{}, status.ErrUnauthenticated
	}
	return Identity{Email: c.Email}, nil
}
