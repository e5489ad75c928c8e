package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoVerifier(t *testing.T) {
	ident, err := DemoVerifier{}.Verify(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", ident.Handle)
	assert.True(t, ident.Verified)

	_, err = DemoVerifier{}.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyCredential)
}

type slowVerifier struct{ delay time.Duration }

func (s slowVerifier) Verify(ctx context.Context, _ string) (domain.Identity, error) {
	select {
	case <-time.After(s.delay):
		return domain.NewIdentity("slow@example.com", "", "", true)
	case <-ctx.Done():
		return domain.Identity{}, ctx.Err()
	}
}

func TestWithTimeout(t *testing.T) {
	v := WithTimeout(slowVerifier{delay: time.Second}, 20*time.Millisecond)
	_, err := v.Verify(context.Background(), "x")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	v = WithTimeout(slowVerifier{delay: time.Millisecond}, time.Second)
	ident, err := v.Verify(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "slow@example.com", ident.Handle)

	plain := slowVerifier{}
	assert.Equal(t, plain, WithTimeout(plain, 0))
}

func TestWithTimeoutHonoursParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithTimeout(slowVerifier{delay: time.Second}, time.Minute).Verify(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	v, err := New(context.Background(), config.AuthConfig{Mode: "demo", Timeout: time.Second})
	require.NoError(t, err)
	ident, err := v.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", ident.Handle)

	_, err = New(context.Background(), config.AuthConfig{Mode: "hmac", HMACSecret: "k"})
	assert.NoError(t, err)

	_, err = New(context.Background(), config.AuthConfig{Mode: "saml"})
	assert.Error(t, err)
}

func TestBoolClaim(t *testing.T) {
	claims := map[string]any{"a": true, "b": "true", "c": "nope", "d": 1}
	get := func(k string) (any, bool) {
		v, ok := claims[k]
		return v, ok
	}
	assert.True(t, boolClaim(get, "a"))
	assert.True(t, boolClaim(get, "b"))
	assert.False(t, boolClaim(get, "c"))
	assert.False(t, boolClaim(get, "d"))
	assert.False(t, boolClaim(get, "missing"))
}
