package app

import "github.com/dkeye/Huddle/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropMessage
	DisconnectSlow
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(id domain.ConnectionID) BackpressureAction
}

// SimplePolicy disconnects slow consumers.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.ConnectionID) BackpressureAction {
	return DisconnectSlow
}

// DropPolicy keeps slow consumers connected and drops what does not fit.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ConnectionID) BackpressureAction {
	return DropMessage
}

func PolicyFor(name string) Policy {
	if name == "drop" {
		return DropPolicy{}
	}
	return SimplePolicy{}
}
