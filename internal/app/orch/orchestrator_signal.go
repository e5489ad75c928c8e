package orch

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/domain"
)

// relay never answers the sender; drops are only visible in logs and metrics.
func (o *Orchestrator) relay(kind app.SignalKind, from, to domain.ConnectionID, payload json.RawMessage) {
	out := o.Relay.Forward(kind, from, to, payload)
	o.Metrics.Signal(kind.String(), out.String())
	if out == app.DroppedBackpressure && o.Policy != nil {
		if o.Policy.OnBackPressure(to) == app.DisconnectSlow {
			o.Registry.Cancel(to)
		}
	}
}
