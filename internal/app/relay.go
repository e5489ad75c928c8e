package app

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalCandidate
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "signal_offer"
	case SignalAnswer:
		return "signal_answer"
	case SignalCandidate:
		return "signal_candidate"
	default:
		return "signal_unknown"
	}
}

type RelayOutcome int

const (
	Delivered RelayOutcome = iota
	DroppedUnauthenticated
	DroppedNotMember
	DroppedUnknownTarget
	DroppedBackpressure
	DroppedBadPayload
	DroppedClosed
)

func (o RelayOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DroppedUnauthenticated:
		return "unauthenticated"
	case DroppedNotMember:
		return "not_member"
	case DroppedUnknownTarget:
		return "unknown_target"
	case DroppedBackpressure:
		return "backpressure"
	case DroppedBadPayload:
		return "bad_payload"
	default:
		return "closed"
	}
}

// Router resolves senders and targets for the relay.
type Router interface {
	IsAuthenticated(id domain.ConnectionID) bool
	Signal(id domain.ConnectionID) (core.SignalConnection, bool)
}

type Membership interface {
	IsMember(id domain.ConnectionID) bool
}

// Relay forwards opaque negotiation payloads from a room member to one
// named connection. Best effort: nothing is queued and nothing is reported
// back to the sender.
type Relay struct {
	router  Router
	members Membership
}

func NewRelay(router Router, members Membership) *Relay {
	return &Relay{router: router, members: members}
}

type forwardedSignal struct {
	Type    string              `json:"type"`
	From    domain.ConnectionID `json:"fromConnectionId"`
	Payload json.RawMessage     `json:"payload"`
}

func (r *Relay) Forward(kind SignalKind, from, to domain.ConnectionID, payload json.RawMessage) RelayOutcome {
	logger := log.With().
		Str("module", "app.relay").
		Str("kind", kind.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Logger()

	if !r.router.IsAuthenticated(from) {
		logger.Debug().Msg("drop: sender not authenticated")
		return DroppedUnauthenticated
	}
	if !r.members.IsMember(from) {
		logger.Debug().Msg("drop: sender not a room member")
		return DroppedNotMember
	}
	if p := bytes.TrimSpace(payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		logger.Debug().Msg("drop: empty payload")
		return DroppedBadPayload
	}
	target, ok := r.router.Signal(to)
	if !ok || to == "" {
		logger.Debug().Msg("drop: unknown target")
		return DroppedUnknownTarget
	}
	frame, err := json.Marshal(forwardedSignal{Type: kind.String(), From: from, Payload: payload})
	if err != nil {
		logger.Warn().Err(err).Msg("drop: payload is not valid json")
		return DroppedBadPayload
	}
	if err := target.TrySend(frame); err != nil {
		if errors.Is(err, core.ErrBackpressure) {
			logger.Warn().Msg("drop: target send queue full")
			return DroppedBackpressure
		}
		logger.Debug().Err(err).Msg("drop: target closed")
		return DroppedClosed
	}
	return Delivered
}
