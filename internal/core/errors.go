package core

import "fmt"

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthenticationFailed
	KindAuthorizationDenied
	KindStateConflict
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a failure reported back to the connection that caused it.
// Code is the stable wire identifier, Message is for humans.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Retryable reports whether the client may simply try again.
func (e *Error) Retryable() bool { return e.Kind == KindAuthenticationFailed }

var (
	ErrAuthenticationFailed = &Error{KindAuthenticationFailed, "authentication_failed", "Authentication failed"}

	ErrNotAuthenticated = &Error{KindAuthorizationDenied, "not_authenticated", "Not authenticated"}
	ErrNotOwner         = &Error{KindAuthorizationDenied, "not_owner", "Only the owner can create rooms"}

	ErrRoomAlreadyActive = &Error{KindStateConflict, "room_already_active", "A room is already active"}
	ErrNoActiveRoom      = &Error{KindStateConflict, "no_active_room", "No active room"}
	ErrCodeMismatch      = &Error{KindStateConflict, "code_mismatch", "Invalid room code"}
	ErrRoomFull          = &Error{KindStateConflict, "room_full", "Room is full"}
	ErrAlreadyMember     = &Error{KindStateConflict, "already_member", "Already in room"}

	ErrNotFound = &Error{KindNotFound, "not_found", "Connection not found"}
)

// Internal builds a programming-error signal; it should be unreachable.
func Internal(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: fmt.Sprintf(format, args...)}
}
