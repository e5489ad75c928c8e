package orch

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/domain"
)

// Intent is one client request kind. The transport adapter decodes wire
// messages into a Command; everything after that is transport-agnostic.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentAuthenticate
	IntentCreateRoom
	IntentJoinRoom
	IntentLeaveRoom
	IntentSignalOffer
	IntentSignalAnswer
	IntentSignalCandidate
	IntentPing
	IntentWhoAmI
)

var intentNames = map[Intent]string{
	IntentAuthenticate:    "authenticate",
	IntentCreateRoom:      "create_room",
	IntentJoinRoom:        "join_room",
	IntentLeaveRoom:       "leave_room",
	IntentSignalOffer:     "signal_offer",
	IntentSignalAnswer:    "signal_answer",
	IntentSignalCandidate: "signal_candidate",
	IntentPing:            "ping",
	IntentWhoAmI:          "whoami",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

func ParseIntent(s string) Intent {
	for i, name := range intentNames {
		if name == s {
			return i
		}
	}
	return IntentUnknown
}

// signalKind maps relay intents onto relay kinds.
func (i Intent) signalKind() (app.SignalKind, bool) {
	switch i {
	case IntentSignalOffer:
		return app.SignalOffer, true
	case IntentSignalAnswer:
		return app.SignalAnswer, true
	case IntentSignalCandidate:
		return app.SignalCandidate, true
	}
	return 0, false
}

type Command struct {
	Intent   Intent
	Token    string
	RoomCode string
	Target   domain.ConnectionID
	Payload  json.RawMessage
}
