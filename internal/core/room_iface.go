package core

import (
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// ParticipantDTO is a read-only view for clients (no raw handle, no transport fields).
type ParticipantDTO struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
	Name         string              `json:"name"`
	Handle       string              `json:"email"`
	IsOwner      bool                `json:"isOwner"`
	JoinedAt     time.Time           `json:"joinedAt"`
}

type RoomInfo struct {
	Code             domain.RoomCode  `json:"code"`
	ParticipantCount int              `json:"participantCount"`
	MaxParticipants  int              `json:"maxParticipants"`
	CreatedAt        time.Time        `json:"createdAt"`
	Participants     []ParticipantDTO `json:"participants"`
}

func (ri *RoomInfo) Has(id domain.ConnectionID) bool {
	if ri == nil {
		return false
	}
	for _, p := range ri.Participants {
		if p.ConnectionID == id {
			return true
		}
	}
	return false
}

// Members returns the connection ids of the snapshot in roster order.
func (ri *RoomInfo) Members() []domain.ConnectionID {
	if ri == nil {
		return nil
	}
	out := make([]domain.ConnectionID, 0, len(ri.Participants))
	for _, p := range ri.Participants {
		out = append(out, p.ConnectionID)
	}
	return out
}

type LeaveResult int

const (
	NotInRoom LeaveResult = iota
	MemberLeft
	RoomClosed
)

func (r LeaveResult) String() string {
	switch r {
	case MemberLeft:
		return "member_left"
	case RoomClosed:
		return "room_closed"
	default:
		return "not_in_room"
	}
}

// LeaveOutcome describes what a leave did to the room.
// Former holds everyone who was a member right before the leave, the
// departing connection included. Room is the snapshot after the leave
// (nil when the room was closed or never existed).
type LeaveOutcome struct {
	Result LeaveResult
	Left   *ParticipantDTO
	Former []domain.ConnectionID
	Room   *RoomInfo
}
