package identity

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// GoogleVerifier checks Google ID tokens against Google's published keys.
type GoogleVerifier struct {
	clientID string
	issuers  []string
	keys     jwk.Set
}

func NewGoogleVerifier(ctx context.Context, clientID, certsURL string, issuers []string) (*GoogleVerifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(certsURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("register jwks %s: %w", certsURL, err)
	}
	return &GoogleVerifier{
		clientID: clientID,
		issuers:  issuers,
		keys:     jwk.NewCachedSet(cache, certsURL),
	}, nil
}

// Verify does not pass ctx to the key fetch: the jwk cache refreshes on its
// own context, so a canceled caller is only noticed before parsing.
func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrEmptyCredential
	}
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("verify: %w", err)
	}
	tok, err := jwt.Parse([]byte(credential),
		jwt.WithKeySet(g.keys),
		jwt.WithValidate(true),
		jwt.WithAudience(g.clientID),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse id token: %w", err)
	}
	if len(g.issuers) > 0 && !slices.Contains(g.issuers, tok.Issuer()) {
		return domain.Identity{}, fmt.Errorf("unexpected issuer %q", tok.Issuer())
	}
	return claimsIdentity(tok.Get)
}
