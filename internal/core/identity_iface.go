package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

// IdentityVerifier turns an opaque credential into a verified identity.
// Implementations own their timeout and retry policy.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}
