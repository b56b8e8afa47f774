// Package auth supplies bearer tokens for file bed requests. A token is
// requested for every outgoing call and is never cached by the client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for one request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// ErrNoToken is returned by sources that have nothing to hand out.
var ErrNoToken = errors.New("auth: no token configured")

// StaticToken always returns the same pre-issued token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// DefaultTTL is the lifetime of tokens minted by JWTSource.
const DefaultTTL = 3 * time.Minute

// Claims is the claim set understood by the file bed service.
type Claims struct {
	RequestID string `json:"request_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTSource signs a fresh HS256 token with a shared secret for every
// request, carrying issue and expiry times plus a unique request id.
type JWTSource struct {
	Secret string
	TTL    time.Duration

	now func() time.Time
}

// NewJWTSource returns a JWTSource using DefaultTTL.
func NewJWTSource(secret string) *JWTSource {
	return &JWTSource{Secret: secret, TTL: DefaultTTL}
}

// Token implements TokenSource.
func (s *JWTSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.Secret == "" {
		return "", fmt.Errorf("auth: jwt secret is empty: %w", ErrNoToken)
	}
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := uuid.NewString()
	claims := Claims{
		RequestID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign jwt: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token minted with secret and checks its
// signature and time claims.
func Verify(token, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: verify jwt: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("auth: invalid jwt")
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
