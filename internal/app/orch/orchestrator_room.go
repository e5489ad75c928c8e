package orch

import (
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) createRoom(id domain.ConnectionID) error {
	code, info, err := o.Rooms.CreateRoom(id)
	if err != nil {
		o.sendError(id, err)
		return err
	}
	o.send(id, roomMsg{Type: "room_created", RoomCode: code, Room: info})
	return nil
}

func (o *Orchestrator) joinRoom(id domain.ConnectionID, raw string) error {
	code := domain.NormalizeCode(raw)
	if code == "" {
		o.sendError(id, errBadRoomCode)
		return errBadRoomCode
	}
	info, err := o.Rooms.JoinRoom(id, code)
	if err != nil {
		o.sendError(id, err)
		return err
	}

	var joined *core.ParticipantDTO
	for i := range info.Participants {
		if info.Participants[i].ConnectionID == id {
			joined = &info.Participants[i]
		}
	}
	o.broadcast(info.Members(), id, userEventMsg{Type: "user_joined", User: publicOf(joined), Room: info})
	o.send(id, roomMsg{Type: "room_joined", RoomCode: code, Room: info})
	return nil
}

// leave removes id from the room and tells the others. On disconnect the
// departing connection is not notified.
func (o *Orchestrator) leave(id domain.ConnectionID, disconnecting bool) core.LeaveOutcome {
	out := o.Rooms.Leave(id)
	switch out.Result {
	case core.RoomClosed:
		skip := domain.ConnectionID("")
		if disconnecting {
			skip = id
		}
		o.broadcast(out.Former, skip, typeOnlyMsg{Type: "room_closed"})
	case core.MemberLeft:
		o.broadcast(out.Room.Members(), id, userEventMsg{Type: "user_left", User: publicOf(out.Left), Room: out.Room})
	case core.NotInRoom:
		log.Debug().Str("module", "orch").Str("conn", string(id)).Msg("leave: not in room")
	}
	return out
}

func (o *Orchestrator) broadcast(to []domain.ConnectionID, skip domain.ConnectionID, v any) {
	for _, m := range to {
		if m == skip {
			continue
		}
		o.send(m, v)
	}
}

func (o *Orchestrator) sendError(id domain.ConnectionID, err error) {
	var ce *core.Error
	if !errors.As(err, &ce) {
		ce = core.Internal("%v", err)
	}
	if ce.Kind == core.KindInternal {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("internal error")
	}
	o.send(id, ErrorMessage(ce.Code, ce.Message))
}
