package storage

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrTokenExpired is returned when the configured bearer token's exp claim
// has passed. Failing fast locally beats a guaranteed 401 round trip.
var ErrTokenExpired = errors.New("bearer token is expired")

// StaticTokenSource hands out a fixed bearer token. The token is parsed
// without verification, only to read its expiry; validating the signature is
// the backend's job.
type StaticTokenSource struct {
	token   string
	expires time.Time
}

// NewStaticTokenSource creates a token source from a raw bearer token. A
// token that does not parse as a JWT, or carries no exp claim, is passed
// through untouched and never considered expired.
func NewStaticTokenSource(token string) *StaticTokenSource {
	s := &StaticTokenSource{token: token}
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		s.expires = claims.ExpiresAt.Time
	}
	return s
}

// Token implements TokenSource.
func (s *StaticTokenSource) Token() (string, error) {
	if !s.expires.IsZero() && time.Now().After(s.expires) {
		return "", ErrTokenExpired
	}
	return s.token, nil
}
