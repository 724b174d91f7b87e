package models

import (
	"time"

	"github.com/google/uuid"

	"alumreg/pkg/domain"
)

// Action identifies what happened to a registration.
type Action string

const (
	ActionSubmission        Action = "submission"
	ActionAutomaticApproval Action = "automatic_approval"
	ActionManualApproval    Action = "manual_approval"
	ActionRejection         Action = "rejection"
	ActionEmailVerified     Action = "email_verified"
	ActionFlaggedForReview  Action = "flagged_for_review"
)

// Entry is one immutable audit record. Entries are append-only; there is no
// update or delete path anywhere in the system.
type Entry struct {
	ID             uuid.UUID             `json:"id"`
	RegistrationID domain.RegistrationID `json:"registration_id"`
	Action         Action                `json:"action"`
	Actor          string                `json:"actor"`
	PrevStatus     string                `json:"prev_status,omitempty"`
	NewStatus      string                `json:"new_status,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewEntry constructs an audit entry with a fresh id.
func NewEntry(regID domain.RegistrationID, action Action, actor string, now time.Time) *Entry {
	return &Entry{
		ID:             uuid.New(),
		RegistrationID: regID,
		Action:         action,
		Actor:          actor,
		CreatedAt:      now,
	}
}
