package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the backend puts in its bearer tokens.
type TokenClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseTokenClaims reads the claims of a backend token without checking its
// signature; the backend holds the key and verifies on every call. It is
// used to learn the expiry so an expired session is closed locally.
func ParseTokenClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether the token has an expiry at or before now.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// ExpiresAt returns the expiry of token, or the zero time when the token
// carries none or cannot be read.
func ExpiresAt(token string) time.Time {
	c, err := ParseTokenClaims(token)
	if err != nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}
