package orch

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type accountView struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	IsOwner bool   `json:"isOwner"`
}

// publicUser is what other participants get to see.
type publicUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type connectedMsg struct {
	Type         string              `json:"type"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type authenticatedMsg struct {
	Type string         `json:"type"`
	User accountView    `json:"user"`
	Room *core.RoomInfo `json:"room"`
}

type authErrorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type roomMsg struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
	Room     *core.RoomInfo  `json:"room"`
}

type userEventMsg struct {
	Type string         `json:"type"`
	User publicUser     `json:"user"`
	Room *core.RoomInfo `json:"room"`
}

type typeOnlyMsg struct {
	Type string `json:"type"`
}

type whoamiMsg struct {
	Type         string              `json:"type"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
	User         *accountView        `json:"user,omitempty"`
	InRoom       bool                `json:"inRoom"`
}

func ErrorMessage(code, message string) any {
	return errorMsg{Type: "error", Code: code, Message: message}
}

func accountOf(ident domain.Identity, owner bool) accountView {
	return accountView{Email: ident.Handle, Name: ident.DisplayName, Picture: ident.Avatar, IsOwner: owner}
}

func publicOf(p *core.ParticipantDTO) publicUser {
	if p == nil {
		return publicUser{}
	}
	return publicUser{Name: p.Name, Email: p.Handle}
}
