package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken(" ").Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestJWTSourceFreshTokens(t *testing.T) {
	src := NewJWTSource("secret")
	ctx := context.Background()

	first, err := src.Token(ctx)
	require.NoError(t, err)
	second, err := src.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "every request carries its own request id")

	claims, err := Verify(first, "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.RequestID)
	assert.Equal(t, claims.RequestID, claims.ID)
	assert.WithinDuration(t, claims.IssuedAt.Add(DefaultTTL), claims.ExpiresAt.Time, time.Second)

	_, err = Verify(first, "other")
	assert.Error(t, err)
}

func TestJWTSourceExpired(t *testing.T) {
	src := &JWTSource{
		Secret: "secret",
		TTL:    time.Minute,
		now:    func() time.Time { return time.Now().Add(-time.Hour) },
	}
	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	_, err = Verify(tok, "secret")
	assert.Error(t, err)
}

func TestJWTSourceErrors(t *testing.T) {
	_, err := (&JWTSource{}).Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewJWTSource("secret").Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer  xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

func TestTokenFunc(t *testing.T) {
	var src TokenSource = TokenFunc(func(ctx context.Context) (string, error) { return "fn", nil })
	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fn", tok)
}
