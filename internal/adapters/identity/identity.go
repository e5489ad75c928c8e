// Package identity holds the identity verifiers the registry can run.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyCredential = errors.New("empty credential")
	ErrMissingEmail    = errors.New("token has no email claim")
)

// New builds the verifier selected by cfg.Auth.Mode, wrapped with its timeout.
func New(ctx context.Context, cfg config.AuthConfig) (core.IdentityVerifier, error) {
	var (
		v   core.IdentityVerifier
		err error
	)
	switch cfg.Mode {
	case "google":
		v, err = NewGoogleVerifier(ctx, cfg.GoogleClientID, cfg.GoogleCertsURL, cfg.GoogleIssuers)
	case "hmac":
		v = NewHMACVerifier([]byte(cfg.HMACSecret))
	case "demo":
		log.Warn().Str("module", "identity").Msg("identity provider not configured, every credential maps to the demo user")
		v = DemoVerifier{}
	default:
		err = fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(v, cfg.Timeout), nil
}

type timeoutVerifier struct {
	next    core.IdentityVerifier
	timeout time.Duration
}

// WithTimeout bounds every Verify call of next.
func WithTimeout(next core.IdentityVerifier, timeout time.Duration) core.IdentityVerifier {
	if timeout <= 0 {
		return next
	}
	return &timeoutVerifier{next: next, timeout: timeout}
}

func (t *timeoutVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		ident domain.Identity
		err   error
	}
	done := make(chan result, 1)
	go func() {
		ident, err := t.next.Verify(ctx, credential)
		done <- result{ident, err}
	}()
	select {
	case r := <-done:
		return r.ident, r.err
	case <-ctx.Done():
		return domain.Identity{}, fmt.Errorf("verify: %w", ctx.Err())
	}
}

// DemoVerifier accepts anything non-empty as the demo user.
type DemoVerifier struct{}

func (DemoVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrEmptyCredential
	}
	return domain.NewIdentity("demo@example.com", "Demo User", "https://via.placeholder.com/150", true)
}

// claimsIdentity maps the OpenID claim set shared by both token verifiers.
func claimsIdentity(get func(string) (any, bool)) (domain.Identity, error) {
	email, _ := stringClaim(get, "email")
	if email == "" {
		return domain.Identity{}, ErrMissingEmail
	}
	name, _ := stringClaim(get, "name")
	picture, _ := stringClaim(get, "picture")
	return domain.NewIdentity(email, name, picture, boolClaim(get, "email_verified"))
}

func stringClaim(get func(string) (any, bool), key string) (string, bool) {
	v, ok := get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// boolClaim accepts both true and "true"; some issuers send strings.
func boolClaim(get func(string) (any, bool), key string) bool {
	v, ok := get(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	}
	return false
}
