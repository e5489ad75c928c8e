package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

const ownerHandle = "owner@example.com"

// tokenVerifier maps a credential straight to the handle it names.
// "unverified:<h>" yields an unverified identity, "bad" fails.
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	switch {
	case credential == "bad" || credential == "":
		return domain.Identity{}, errors.New("invalid token")
	case len(credential) > 11 && credential[:11] == "unverified:":
		return domain.NewIdentity(credential[11:], "", "", false)
	}
	return domain.NewIdentity(credential, "User "+credential, "", true)
}

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

type fixture struct {
	reg   *Registry
	rooms *RoomCoordinator
	relay *Relay
	conns map[domain.ConnectionID]*fakeConn
}

func newFixture() *fixture {
	reg := NewRegistry(tokenVerifier{}, ownerHandle)
	rooms := NewRoomCoordinator(reg, WithStrictInvariants(true))
	return &fixture{
		reg:   reg,
		rooms: rooms,
		relay: NewRelay(reg, rooms),
		conns: make(map[domain.ConnectionID]*fakeConn),
	}
}

func (f *fixture) connect(id domain.ConnectionID) *fakeConn {
	c := &fakeConn{}
	f.conns[id] = c
	f.reg.Register(id, c, nil)
	return c
}

func (f *fixture) login(t *testing.T, id domain.ConnectionID, handle string) {
	t.Helper()
	f.connect(id)
	_, err := f.reg.Authenticate(context.Background(), id, handle)
	require.NoError(t, err)
}

// openRoom logs in the owner as id and creates the room.
func (f *fixture) openRoom(t *testing.T, id domain.ConnectionID) domain.RoomCode {
	t.Helper()
	f.login(t, id, ownerHandle)
	code, _, err := f.rooms.CreateRoom(id)
	require.NoError(t, err)
	return code
}
