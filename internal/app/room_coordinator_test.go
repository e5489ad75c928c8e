package app

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	f := newFixture()
	f.login(t, "owner", ownerHandle)

	code, info, err := f.rooms.CreateRoom("owner")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), string(code))
	require.NotNil(t, info)
	assert.Equal(t, code, info.Code)
	assert.Equal(t, 1, info.ParticipantCount)
	assert.Equal(t, domain.RoomCapacity, info.MaxParticipants)
	assert.True(t, info.Participants[0].IsOwner)
	assert.True(t, f.rooms.IsMember("owner"))
}

func TestCreateRoomRequiresOwner(t *testing.T) {
	f := newFixture()
	f.connect("anon")
	_, _, err := f.rooms.CreateRoom("anon")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)

	f.login(t, "bob", "bob@example.com")
	_, _, err = f.rooms.CreateRoom("bob")
	assert.ErrorIs(t, err, core.ErrNotOwner)
	assert.Nil(t, f.rooms.Snapshot())
}

func TestCreateRoomWhileActive(t *testing.T) {
	f := newFixture()
	f.openRoom(t, "owner")
	f.login(t, "owner2", ownerHandle)

	_, _, err := f.rooms.CreateRoom("owner2")
	assert.ErrorIs(t, err, core.ErrRoomAlreadyActive)
	_, _, err = f.rooms.CreateRoom("owner")
	assert.ErrorIs(t, err, core.ErrRoomAlreadyActive)
}

func TestConcurrentCreateYieldsOneRoom(t *testing.T) {
	f := newFixture()
	const n = 16
	for i := 0; i < n; i++ {
		f.login(t, domain.ConnectionID(fmt.Sprintf("o%d", i)), ownerHandle)
	}

	var ok, conflict atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := f.rooms.CreateRoom(domain.ConnectionID(fmt.Sprintf("o%d", i)))
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, core.ErrRoomAlreadyActive):
				conflict.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, n-1, conflict.Load())
	assert.Equal(t, 1, f.rooms.Snapshot().ParticipantCount)
}

func TestJoinRoom(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "owner")
	f.login(t, "bob", "bob@example.com")

	info, err := f.rooms.JoinRoom("bob", code)
	require.NoError(t, err)
	assert.Equal(t, 2, info.ParticipantCount)
	assert.Equal(t, domain.ConnectionID("bob"), info.Participants[1].ConnectionID)
	assert.False(t, info.Participants[1].IsOwner)
	assert.True(t, f.rooms.IsMember("bob"))
}

func TestJoinRoomFailures(t *testing.T) {
	f := newFixture()
	f.login(t, "bob", "bob@example.com")

	_, err := f.rooms.JoinRoom("bob", "ABCDEF")
	assert.ErrorIs(t, err, core.ErrNoActiveRoom)

	code := f.openRoom(t, "owner")

	f.connect("anon")
	_, err = f.rooms.JoinRoom("anon", code)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)

	wrong := domain.RoomCode("ZZZZZZ")
	if wrong == code {
		wrong = "YYYYYY"
	}
	_, err = f.rooms.JoinRoom("bob", wrong)
	assert.ErrorIs(t, err, core.ErrCodeMismatch)

	if lower := domain.RoomCode(strings.ToLower(string(code))); lower != code {
		_, err = f.rooms.JoinRoom("bob", lower)
		assert.ErrorIs(t, err, core.ErrCodeMismatch, "comparison is case-sensitive")
	}

	_, err = f.rooms.JoinRoom("owner", code)
	assert.ErrorIs(t, err, core.ErrAlreadyMember)

	_, err = f.rooms.JoinRoom("bob", code)
	require.NoError(t, err)
	_, err = f.rooms.JoinRoom("bob", code)
	assert.ErrorIs(t, err, core.ErrAlreadyMember)
	assert.Equal(t, 2, f.rooms.Snapshot().ParticipantCount)
}

func TestJoinRoomNormalizedInput(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "owner")
	f.login(t, "bob", "bob@example.com")

	raw := " " + strings.ToLower(string(code[:3])) + "-" + string(code[3:]) + " "
	_, err := f.rooms.JoinRoom("bob", domain.NormalizeCode(raw))
	assert.NoError(t, err)
}

func TestJoinRoomCapacity(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "owner")

	const n = 12
	for i := 0; i < n; i++ {
		f.login(t, domain.ConnectionID(fmt.Sprintf("u%d", i)), fmt.Sprintf("u%d@example.com", i))
	}

	var joined, full atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.rooms.JoinRoom(domain.ConnectionID(fmt.Sprintf("u%d", i)), code)
			switch {
			case err == nil:
				joined.Add(1)
			case assert.ErrorIs(t, err, core.ErrRoomFull):
				full.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, domain.RoomCapacity-1, joined.Load())
	assert.EqualValues(t, n-(domain.RoomCapacity-1), full.Load())
	assert.Equal(t, domain.RoomCapacity, f.rooms.Snapshot().ParticipantCount)
}

func TestFifthJoinIsRoomFull(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "owner")
	for _, id := range []domain.ConnectionID{"b", "c", "d"} {
		f.login(t, id, string(id)+"@example.com")
		_, err := f.rooms.JoinRoom(id, code)
		require.NoError(t, err)
	}
	f.login(t, "e", "e@example.com")
	_, err := f.rooms.JoinRoom("e", code)
	assert.ErrorIs(t, err, core.ErrRoomFull)
	assert.False(t, f.rooms.IsMember("e"))
}

func TestOwnerLeaveClosesRoom(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "C")
	f.login(t, "B", "b@example.com")
	_, err := f.rooms.JoinRoom("B", code)
	require.NoError(t, err)

	out := f.rooms.Leave("C")
	assert.Equal(t, core.RoomClosed, out.Result)
	assert.ElementsMatch(t, []domain.ConnectionID{"C", "B"}, out.Former)
	assert.Nil(t, out.Room)
	assert.Nil(t, f.rooms.Snapshot())
	assert.False(t, f.rooms.IsMember("B"))
	assert.False(t, f.rooms.IsMember("C"))

	// a fresh room can be opened afterwards
	_, _, err = f.rooms.CreateRoom("C")
	assert.NoError(t, err)
}

func TestNonOwnerLeaveKeepsRoom(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "C")
	for _, id := range []domain.ConnectionID{"B", "D"} {
		f.login(t, id, string(id)+"@example.com")
		_, err := f.rooms.JoinRoom(id, code)
		require.NoError(t, err)
	}

	out := f.rooms.Leave("B")
	assert.Equal(t, core.MemberLeft, out.Result)
	require.NotNil(t, out.Left)
	assert.Equal(t, domain.ConnectionID("B"), out.Left.ConnectionID)

	snap := f.rooms.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.ParticipantCount)
	assert.Equal(t, []domain.ConnectionID{"C", "D"}, snap.Members())
	assert.Equal(t, snap, out.Room)
}

func TestLeaveNotInRoom(t *testing.T) {
	f := newFixture()
	assert.Equal(t, core.NotInRoom, f.rooms.Leave("x").Result)

	f.openRoom(t, "C")
	f.login(t, "B", "b@example.com")
	out := f.rooms.Leave("B")
	assert.Equal(t, core.NotInRoom, out.Result)
	assert.Empty(t, out.Former)
	assert.Equal(t, 1, f.rooms.Snapshot().ParticipantCount)
}

func TestSnapshotMasksHandles(t *testing.T) {
	f := newFixture()
	code := f.openRoom(t, "C")
	f.login(t, "B", "bob@example.com")
	_, err := f.rooms.JoinRoom("B", code)
	require.NoError(t, err)

	mask := regexp.MustCompile(`^.{0,3}\*\*\*$`)
	for _, p := range f.rooms.Snapshot().Participants {
		assert.Regexp(t, mask, p.Handle)
		assert.NotContains(t, p.Handle, "@example.com")
	}
	assert.Equal(t, "bob***", f.rooms.Snapshot().Participants[1].Handle)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture()
	f.openRoom(t, "C")
	snap := f.rooms.Snapshot()
	snap.Participants[0].Name = "mutated"
	assert.NotEqual(t, "mutated", f.rooms.Snapshot().Participants[0].Name)
}

func TestCodeGeneratorOutputIsNormalized(t *testing.T) {
	reg := NewRegistry(tokenVerifier{}, ownerHandle)
	rooms := NewRoomCoordinator(reg,
		WithStrictInvariants(true),
		WithCodeGenerator(func() (domain.RoomCode, error) { return "ab-c12d", nil }),
	)
	reg.Register("C", &fakeConn{}, nil)
	_, err := reg.Authenticate(t.Context(), "C", ownerHandle)
	require.NoError(t, err)

	code, _, err := rooms.CreateRoom("C")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomCode("ABC12D"), code)
}

func TestRoomInvariant(t *testing.T) {
	assert.NoError(t, roomInvariant(nil))
	bad := &domain.Room{Code: "ABCDEF", Creator: "a", Capacity: 4}
	assert.Error(t, roomInvariant(bad))
	bad.Members = []domain.Member{{ConnectionID: "b"}}
	assert.Error(t, roomInvariant(bad))
	bad.Members = []domain.Member{{ConnectionID: "a"}, {ConnectionID: "a"}}
	assert.Error(t, roomInvariant(bad))
	bad.Members = []domain.Member{{ConnectionID: "a"}}
	assert.NoError(t, roomInvariant(bad))
}
