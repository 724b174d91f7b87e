package models

import (
	dErrors "alumreg/pkg/domain-errors"
)

// Status is the lifecycle state of a registration.
//
// Transitions: Pending -> Approved | Rejected; Approved -> Active (email
// verified) | Rejected. Active and Rejected are terminal. Manual review is
// an orthogonal flag on a Pending registration, not a status.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusActive   Status = "Active"
	StatusRejected Status = "Rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusActive:   true,
	StatusRejected: true,
}

// ParseStatus validates an external status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status: %s", s)
	}
	return st, nil
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusActive || s == StatusRejected
}

// CanTransitionTo reports whether the transition is part of the state machine.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusActive || next == StatusRejected
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
