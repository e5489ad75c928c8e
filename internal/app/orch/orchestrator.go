package orch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	errUnknownType = &core.Error{Kind: core.KindStateConflict, Code: "unknown_type", Message: "Unknown message type"}
	errBadRoomCode = &core.Error{Kind: core.KindStateConflict, Code: "bad_payload", Message: "Invalid room code"}
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomCoordinator
	Relay    *app.Relay
	Policy   app.Policy
	Metrics  *metrics.Metrics
}

// New wires the registry, coordinator and relay around one verifier.
func New(verifier core.IdentityVerifier, ownerHandle string, policy app.Policy, m *metrics.Metrics, opts ...app.CoordinatorOption) *Orchestrator {
	reg := app.NewRegistry(verifier, ownerHandle)
	rooms := app.NewRoomCoordinator(reg, opts...)
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Relay:    app.NewRelay(reg, rooms),
		Policy:   policy,
		Metrics:  m,
	}
}

// OnConnect registers a fresh transport connection and greets it with its id.
func (o *Orchestrator) OnConnect(id domain.ConnectionID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Register(id, sig, cancel)
	o.send(id, connectedMsg{Type: "connected", ConnectionID: id})
	o.refreshGauges()
}

// Dispatch runs one intent for id and answers the requester. The returned
// error has already been reported to the client.
func (o *Orchestrator) Dispatch(ctx context.Context, id domain.ConnectionID, cmd Command) error {
	var err error
	switch cmd.Intent {
	case IntentAuthenticate:
		err = o.authenticate(ctx, id, cmd.Token)
	case IntentCreateRoom:
		err = o.createRoom(id)
	case IntentJoinRoom:
		err = o.joinRoom(id, cmd.RoomCode)
	case IntentLeaveRoom:
		o.leave(id, false)
	case IntentSignalOffer, IntentSignalAnswer, IntentSignalCandidate:
		kind, _ := cmd.Intent.signalKind()
		o.relay(kind, id, cmd.Target, cmd.Payload)
		return nil
	case IntentPing:
		o.send(id, typeOnlyMsg{Type: "pong"})
	case IntentWhoAmI:
		o.whoami(id)
	default:
		err = errUnknownType
		o.sendError(id, err)
	}
	o.Metrics.Intent(cmd.Intent.String(), resultOf(err))
	o.refreshGauges()
	return err
}

// OnDisconnect cleans up after a transport went away: room first, then the
// registry entry, so no late message can refer to an identity-less member.
func (o *Orchestrator) OnDisconnect(id domain.ConnectionID) {
	if !o.Registry.BeginClose(id) {
		return
	}
	before := o.Rooms.Snapshot()
	out := o.leave(id, true)
	o.Registry.Deregister(id)
	if before != nil && out.Result != core.NotInRoom {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("code", string(before.Code)).Str("result", out.Result.String()).Msg("disconnect cleanup")
	}
	o.refreshGauges()
}

// RoomInfo is the read-only query usable outside any connection.
func (o *Orchestrator) RoomInfo() *core.RoomInfo {
	return o.Rooms.Snapshot()
}

func (o *Orchestrator) authenticate(ctx context.Context, id domain.ConnectionID, token string) error {
	if token == "" {
		o.send(id, authErrorMsg{Type: "auth_error", Error: "No token provided"})
		return core.ErrAuthenticationFailed
	}
	start := time.Now()
	ident, err := o.Registry.Authenticate(ctx, id, token)
	o.Metrics.ObserveAuth(time.Since(start).Seconds())
	if err != nil {
		o.send(id, authErrorMsg{Type: "auth_error", Error: core.ErrAuthenticationFailed.Message})
		return err
	}
	o.send(id, authenticatedMsg{
		Type: "authenticated",
		User: accountOf(ident, o.Registry.IsOwner(id)),
		Room: o.Rooms.Snapshot(),
	})
	return nil
}

func (o *Orchestrator) whoami(id domain.ConnectionID) {
	msg := whoamiMsg{Type: "whoami", ConnectionID: id, InRoom: o.Rooms.IsMember(id)}
	if ident, ok := o.Registry.Resolve(id); ok {
		acc := accountOf(ident, o.Registry.IsOwner(id))
		msg.User = &acc
	}
	o.send(id, msg)
}

func (o *Orchestrator) refreshGauges() {
	if o.Metrics == nil {
		return
	}
	st := o.Registry.Stats()
	o.Metrics.SetConnections(st.Connections, st.Authenticated)
	members := 0
	if snap := o.Rooms.Snapshot(); snap != nil {
		members = snap.ParticipantCount
	}
	o.Metrics.SetRoom(members)
}

// send encodes v and queues it for id, applying the backpressure policy.
func (o *Orchestrator) send(id domain.ConnectionID, v any) {
	sig, ok := o.Registry.Signal(id)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound message")
		return
	}
	if err := sig.TrySend(b); err != nil {
		o.onSendError(id, err)
	}
}

func (o *Orchestrator) onSendError(id domain.ConnectionID, err error) {
	if !errors.Is(err, core.ErrBackpressure) || o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(id) {
	case app.DisconnectSlow:
		log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("slow consumer, disconnecting")
		o.Registry.Cancel(id)
	case app.DropMessage, app.NoAction:
	}
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "error"
}
