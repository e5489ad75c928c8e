package app

import (
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// IdentityDirectory is the slice of the registry the coordinator needs.
type IdentityDirectory interface {
	Resolve(id domain.ConnectionID) (domain.Identity, bool)
	IsOwner(id domain.ConnectionID) bool
}

type CoordinatorOption func(*RoomCoordinator)

// WithStrictInvariants makes an invariant violation panic instead of log.
func WithStrictInvariants(strict bool) CoordinatorOption {
	return func(c *RoomCoordinator) { c.strict = strict }
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *RoomCoordinator) { c.now = now }
}

func WithCodeGenerator(gen func() (domain.RoomCode, error)) CoordinatorOption {
	return func(c *RoomCoordinator) { c.genCode = gen }
}

// RoomCoordinator owns the single room. Every transition runs under mu,
// so there is at most one room and no member is ever counted twice.
type RoomCoordinator struct {
	mu   sync.RWMutex
	room *domain.Room

	dir     IdentityDirectory
	now     func() time.Time
	genCode func() (domain.RoomCode, error)
	strict  bool
}

func NewRoomCoordinator(dir IdentityDirectory, opts ...CoordinatorOption) *RoomCoordinator {
	c := &RoomCoordinator{
		dir:     dir,
		now:     time.Now,
		genCode: domain.GenerateCode,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RoomCoordinator) CreateRoom(id domain.ConnectionID) (domain.RoomCode, *core.RoomInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ident, ok := c.dir.Resolve(id)
	if !ok {
		return "", nil, core.ErrNotAuthenticated
	}
	if !c.dir.IsOwner(id) {
		return "", nil, core.ErrNotOwner
	}
	if c.room != nil {
		return "", nil, core.ErrRoomAlreadyActive
	}
	code, err := c.genCode()
	if err != nil {
		return "", nil, core.Internal("generate room code: %v", err)
	}
	code = domain.NormalizeCode(string(code))
	now := c.now()
	c.room = &domain.Room{
		Code:      code,
		Creator:   id,
		CreatedAt: now,
		Capacity:  domain.RoomCapacity,
		Members: []domain.Member{{
			ConnectionID: id,
			Identity:     ident,
			IsOwner:      true,
			JoinedAt:     now,
		}},
	}
	c.checkLocked("create")
	log.Info().Str("module", "app.rooms").Str("conn", string(id)).Str("code", string(code)).Msg("room created")
	return code, c.snapshotLocked(), nil
}

// JoinRoom expects code to be normalized already (see domain.NormalizeCode).
func (c *RoomCoordinator) JoinRoom(id domain.ConnectionID, code domain.RoomCode) (*core.RoomInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ident, ok := c.dir.Resolve(id)
	if !ok {
		return nil, core.ErrNotAuthenticated
	}
	if c.room == nil {
		return nil, core.ErrNoActiveRoom
	}
	if c.room.Code != code {
		return nil, core.ErrCodeMismatch
	}
	if c.room.Full() {
		return nil, core.ErrRoomFull
	}
	if c.room.IndexOf(id) >= 0 {
		return nil, core.ErrAlreadyMember
	}
	c.room.Members = append(c.room.Members, domain.Member{
		ConnectionID: id,
		Identity:     ident,
		IsOwner:      false,
		JoinedAt:     c.now(),
	})
	c.checkLocked("join")
	log.Info().Str("module", "app.rooms").Str("conn", string(id)).Int("count", len(c.room.Members)).Msg("member joined")
	return c.snapshotLocked(), nil
}

// Leave removes id. If id created the room, or nobody is left, the room is
// torn down. There is no ownership transfer.
func (c *RoomCoordinator) Leave(id domain.ConnectionID) core.LeaveOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.room == nil {
		return core.LeaveOutcome{Result: core.NotInRoom}
	}
	idx := c.room.IndexOf(id)
	if idx < 0 {
		return core.LeaveOutcome{Result: core.NotInRoom, Room: c.snapshotLocked()}
	}

	former := make([]domain.ConnectionID, 0, len(c.room.Members))
	for _, m := range c.room.Members {
		former = append(former, m.ConnectionID)
	}
	left := participantOf(c.room.Members[idx])
	c.room.Members = append(c.room.Members[:idx], c.room.Members[idx+1:]...)

	if id == c.room.Creator || len(c.room.Members) == 0 {
		log.Info().Str("module", "app.rooms").Str("conn", string(id)).Str("code", string(c.room.Code)).Msg("room closed")
		c.room = nil
		c.checkLocked("close")
		return core.LeaveOutcome{Result: core.RoomClosed, Left: &left, Former: former}
	}
	c.checkLocked("leave")
	log.Info().Str("module", "app.rooms").Str("conn", string(id)).Int("count", len(c.room.Members)).Msg("member left")
	return core.LeaveOutcome{Result: core.MemberLeft, Left: &left, Former: former, Room: c.snapshotLocked()}
}

func (c *RoomCoordinator) Snapshot() *core.RoomInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *RoomCoordinator) IsMember(id domain.ConnectionID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room != nil && c.room.IndexOf(id) >= 0
}

func (c *RoomCoordinator) snapshotLocked() *core.RoomInfo {
	if c.room == nil {
		return nil
	}
	out := &core.RoomInfo{
		Code:             c.room.Code,
		ParticipantCount: len(c.room.Members),
		MaxParticipants:  c.room.Capacity,
		CreatedAt:        c.room.CreatedAt,
		Participants:     make([]core.ParticipantDTO, 0, len(c.room.Members)),
	}
	for _, m := range c.room.Members {
		out.Participants = append(out.Participants, participantOf(m))
	}
	return out
}

func participantOf(m domain.Member) core.ParticipantDTO {
	return core.ParticipantDTO{
		ConnectionID: m.ConnectionID,
		Name:         m.Identity.DisplayName,
		Handle:       m.Identity.MaskedHandle(),
		IsOwner:      m.IsOwner,
		JoinedAt:     m.JoinedAt,
	}
}

func (c *RoomCoordinator) checkLocked(op string) {
	err := roomInvariant(c.room)
	if err == nil {
		return
	}
	if c.strict {
		panic(err)
	}
	log.Error().Err(err).Str("module", "app.rooms").Str("op", op).Msg("room invariant violated")
}

func roomInvariant(r *domain.Room) error {
	if r == nil {
		return nil
	}
	switch {
	case len(r.Members) == 0:
		return core.Internal("room %s exists without members", r.Code)
	case len(r.Members) > r.Capacity:
		return core.Internal("room %s has %d members, capacity %d", r.Code, len(r.Members), r.Capacity)
	case r.Members[0].ConnectionID != r.Creator:
		return core.Internal("room %s creator %s is not the first member", r.Code, r.Creator)
	case len(r.Code) != domain.RoomCodeLen:
		return core.Internal("room code %q has bad length", r.Code)
	}
	seen := make(map[domain.ConnectionID]struct{}, len(r.Members))
	for _, m := range r.Members {
		if _, dup := seen[m.ConnectionID]; dup {
			return core.Internal("room %s lists %s twice", r.Code, m.ConnectionID)
		}
		seen[m.ConnectionID] = struct{}{}
	}
	return nil
}
