// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxHandleLen      = 320
	MaxDisplayNameLen = 64

	maskedPrefixLen = 3
	maskSuffix      = "***"
)

var (
	ErrHandleEmpty   = errors.New("handle empty")
	ErrHandleTooLong = errors.New("handle too long")
)

// ConnectionID names one live transport connection. It is never reused across reconnects.
type ConnectionID string

// Identity is what the identity provider vouched for. Immutable once resolved.
type Identity struct {
	Handle      string `json:"email"`
	DisplayName string `json:"name"`
	Avatar      string `json:"picture,omitempty"`
	Verified    bool   `json:"verified"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in verifiers.
func NewIdentity(handle, displayName, avatar string, verified bool) (Identity, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Identity{}, ErrHandleEmpty
	}
	if len(handle) > MaxHandleLen {
		return Identity{}, ErrHandleTooLong
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = handle
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLen {
		displayName = string([]rune(displayName)[:MaxDisplayNameLen])
	}
	return Identity{
		Handle:      handle,
		DisplayName: displayName,
		Avatar:      avatar,
		Verified:    verified,
	}, nil
}

// MaskedHandle is a display rule, not a security boundary.
func (i Identity) MaskedHandle() string {
	return MaskHandle(i.Handle)
}

// MaskHandle keeps the first three runes of handle and appends a fixed mask.
func MaskHandle(handle string) string {
	r := []rune(handle)
	if len(r) > maskedPrefixLen {
		r = r[:maskedPrefixLen]
	}
	return string(r) + maskSuffix
}
