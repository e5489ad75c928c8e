package identity

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier checks HS256 tokens signed with a shared secret, for
// deployments that issue their own tokens.
type HMACVerifier struct{ secret []byte }

func NewHMACVerifier(secret []byte) *HMACVerifier { return &HMACVerifier{secret: secret} }

func (h *HMACVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrEmptyCredential
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	return claimsIdentity(func(k string) (any, bool) {
		v, ok := claims[k]
		return v, ok
	})
}
