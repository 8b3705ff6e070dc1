package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/scythe504/andevent-backend/internal"
)

const DefaultTokenTTL = 12 * time.Hour

// SessionClaims identify a host or player across reconnects. Subject is
// the host or player id.
type SessionClaims struct {
	Pin  string        `json:"pin"`
	Role internal.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer signs with secret, or with a random per-process key when
// secret is empty (tokens then do not survive a restart, and neither do rooms).
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: key, ttl: ttl}, nil
}

func (t *TokenIssuer) Issue(pin string, role internal.Role, subject string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Pin:  pin,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks the signature, expiry, pin and role of a token.
func (t *TokenIssuer) Verify(token, pin string, role internal.Role) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Pin != pin || claims.Role != role || claims.Subject == "" {
		return nil, errors.New("token does not match this game")
	}
	return claims, nil
}
