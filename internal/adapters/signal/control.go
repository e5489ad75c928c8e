package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type wireMessage struct {
	Type     string          `json:"type"`
	Token    string          `json:"token,omitempty"`
	RoomCode string          `json:"roomCode,omitempty"`
	Target   string          `json:"targetConnectionId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// DecodeCommand turns one client frame into a Command. An unrecognised type
// decodes to IntentUnknown; only malformed JSON is an error.
func DecodeCommand(data []byte) (orch.Command, error) {
	var m wireMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return orch.Command{}, fmt.Errorf("decode message: %w", err)
	}
	return orch.Command{
		Intent:   orch.ParseIntent(m.Type),
		Token:    m.Token,
		RoomCode: m.RoomCode,
		Target:   domain.ConnectionID(m.Target),
		Payload:  m.Payload,
	}, nil
}

// limited reports the intents that spend an attempt from the per-client budget.
func limited(i orch.Intent) bool {
	return i == orch.IntentJoinRoom
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, id domain.ConnectionID, c *WsSignalConn, data []byte) {
	cmd, err := DecodeCommand(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad json")
		ctl.sendJSON(c, orch.ErrorMessage("bad_payload", "Invalid message"))
		return
	}

	if limited(cmd.Intent) && !ctl.limiter.Allow(c.remote) {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("remote", c.remote).Msg("join rate limited")
		ctl.sendJSON(c, orch.ErrorMessage("rate_limited", "Too many attempts, try again later"))
		return
	}

	if err := ctl.Orch.Dispatch(ctx, id, cmd); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Str("intent", cmd.Intent.String()).Msg("intent rejected")
	}
}
