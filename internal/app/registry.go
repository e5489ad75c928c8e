package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// connEntry is one live connection. A pointer identifies a registration:
// a re-registered id gets a fresh entry, so stale authenticate results can
// be told apart from current ones.
type connEntry struct {
	signal   core.SignalConnection
	cancel   context.CancelFunc
	identity *domain.Identity
	closing  bool
}

// Registry is the connection registry: transport connection id to
// authentication state and identity.
type Registry struct {
	mu          sync.RWMutex
	conns       map[domain.ConnectionID]*connEntry
	verifier    core.IdentityVerifier
	ownerHandle string
}

func NewRegistry(verifier core.IdentityVerifier, ownerHandle string) *Registry {
	return &Registry{
		conns:       make(map[domain.ConnectionID]*connEntry),
		verifier:    verifier,
		ownerHandle: ownerHandle,
	}
}

// Register creates an unauthenticated entry. Re-registering an id overwrites it.
func (r *Registry) Register(id domain.ConnectionID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		log.Warn().Str("module", "app.registry").Str("conn", string(id)).Msg("re-register overwrites live entry")
	}
	r.conns[id] = &connEntry{signal: sig, cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

// Authenticate verifies credential and binds the identity to id.
// The verifier runs without the lock held; its result is only applied if the
// same registration is still alive and not closing.
func (r *Registry) Authenticate(ctx context.Context, id domain.ConnectionID, credential string) (domain.Identity, error) {
	r.mu.RLock()
	entry, ok := r.conns[id]
	alive := ok && !entry.closing
	r.mu.RUnlock()
	if !alive {
		return domain.Identity{}, fmt.Errorf("connection %s: %w", id, core.ErrAuthenticationFailed)
	}

	ident, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("conn", string(id)).Msg("credential rejected")
		return domain.Identity{}, errors.Join(core.ErrAuthenticationFailed, err)
	}
	if !ident.Verified {
		log.Warn().Str("module", "app.registry").Str("conn", string(id)).Msg("identity not verified")
		return domain.Identity{}, fmt.Errorf("identity not verified: %w", core.ErrAuthenticationFailed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[id]; !ok || cur != entry || cur.closing {
		log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("discarding authenticate result for gone connection")
		return domain.Identity{}, fmt.Errorf("connection %s gone: %w", id, core.ErrAuthenticationFailed)
	}
	if entry.identity != nil {
		if entry.identity.Handle != ident.Handle {
			return domain.Identity{}, fmt.Errorf("identity already bound: %w", core.ErrAuthenticationFailed)
		}
		return *entry.identity, nil
	}
	entry.identity = &ident
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("user", ident.MaskedHandle()).Msg("authenticated")
	return ident, nil
}

func (r *Registry) Resolve(id domain.ConnectionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.closing || e.identity == nil {
		return domain.Identity{}, false
	}
	return *e.identity, true
}

func (r *Registry) IsAuthenticated(id domain.ConnectionID) bool {
	_, ok := r.Resolve(id)
	return ok
}

func (r *Registry) IsOwner(id domain.ConnectionID) bool {
	ident, ok := r.Resolve(id)
	return ok && r.ownerHandle != "" && ident.Handle == r.ownerHandle
}

// Signal returns the transport endpoint of id for routing.
func (r *Registry) Signal(id domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.signal, true
	}
	return nil, false
}

// BeginClose marks id as going away. From here on it resolves as
// unauthenticated, so it cannot gain room membership while cleanup runs.
func (r *Registry) BeginClose(id domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.closing = true
	return true
}

// Deregister removes id. Call only after room cleanup for id completed.
func (r *Registry) Deregister(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("deregistered connection")
}

// Cancel stops the transport of id; the adapter then runs the disconnect path.
func (r *Registry) Cancel(id domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

type RegistryStats struct {
	Connections   int
	Authenticated int
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := RegistryStats{Connections: len(r.conns)}
	for _, e := range r.conns {
		if e.identity != nil && !e.closing {
			s.Authenticated++
		}
	}
	return s
}
