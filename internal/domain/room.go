package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	RoomCodeLen      = 6
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	RoomCapacity     = 4
)

type RoomCode string

// Member is one participant of the room. The room roster and the
// per-participant join metadata live in this single record.
type Member struct {
	ConnectionID ConnectionID
	Identity     Identity
	IsOwner      bool
	JoinedAt     time.Time
}

type Room struct {
	Code      RoomCode
	Creator   ConnectionID
	CreatedAt time.Time
	Capacity  int
	// Members is ordered by join time; Members[0] is the creator.
	Members []Member
}

func (r *Room) IndexOf(id ConnectionID) int {
	for i := range r.Members {
		if r.Members[i].ConnectionID == id {
			return i
		}
	}
	return -1
}

func (r *Room) Full() bool { return len(r.Members) >= r.Capacity }

// NormalizeCode upper-cases raw and drops every rune outside the code alphabet.
func NormalizeCode(raw string) RoomCode {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range strings.ToUpper(raw) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return RoomCode(b.String())
}

// GenerateCode draws RoomCodeLen symbols uniformly from RoomCodeAlphabet.
func GenerateCode() (RoomCode, error) {
	buf := make([]byte, RoomCodeLen)
	max := big.NewInt(int64(len(RoomCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = RoomCodeAlphabet[n.Int64()]
	}
	return NormalizeCode(string(buf)), nil
}
