package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, codeRe, string(code))
		assert.Equal(t, code, NormalizeCode(string(code)))
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, RoomCode("AB12CD"), NormalizeCode(" ab-12 cd "))
	assert.Equal(t, RoomCode("XYZ"), NormalizeCode("<x>y'z&"))
	assert.Equal(t, RoomCode(""), NormalizeCode("!!!"))
}

func TestRoomIndexOf(t *testing.T) {
	r := &Room{Capacity: 2, Members: []Member{{ConnectionID: "a"}, {ConnectionID: "b"}}}
	assert.Equal(t, 1, r.IndexOf("b"))
	assert.Equal(t, -1, r.IndexOf("c"))
	assert.True(t, r.Full())
}
