package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims is the payload carried by every session token. The subject
// registered claim names the authenticated username.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates the stateless bearer tokens that bind a
// WebSocket session to a username. Tokens are HS256-signed JWTs with an
// issued-at and expiry window; nothing is stored server-side.
type TokenService struct {
	secret   []byte
	validity time.Duration
}

// NewTokenService creates a TokenService signing with the given secret.
// Tokens expire after validity.
func NewTokenService(secret []byte, validity time.Duration) *TokenService {
	return &TokenService{secret: secret, validity: validity}
}

// Issue produces a signed token naming username as its subject.
func (s *TokenService) Issue(username string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks the token's signature, structure and expiry, and returns
// the subject username on success. All failure modes collapse into a single
// false result so callers cannot distinguish a forged signature from a
// malformed or stale token.
func (s *TokenService) Validate(tokenString string) (string, bool) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
