package core

import "errors"

// Frame is a raw encoded message bound for one client.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block and must keep per-connection FIFO order.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
