// Package store persists registration records. Two implementations exist:
// an in-memory store for tests and local development, and a PostgreSQL
// store for production. Both enforce the same uniqueness rules; in
// PostgreSQL the unique indexes are the actual correctness guarantee under
// concurrent submissions.
package store

import (
	"fmt"

	"alumreg/pkg/platform/sentinel"
)

// DuplicateField names which uniqueness rule a write violated.
type DuplicateField string

const (
	DuplicateEmail       DuplicateField = "email"
	DuplicateStaffNumber DuplicateField = "staffNumber"
	DuplicateMobile      DuplicateField = "mobile"
	DuplicateLinkedIn    DuplicateField = "linkedinUrl"
	DuplicateNumber      DuplicateField = "registrationNumber"
)

// DuplicateError reports a uniqueness violation. It wraps
// sentinel.ErrConflict so errors.Is works across layers.
type DuplicateError struct {
	Field DuplicateField
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %v", e.Field, sentinel.ErrConflict)
}

func (e *DuplicateError) Unwrap() error {
	return sentinel.ErrConflict
}

// ListFilter selects and pages registrations for the admin dashboard.
type ListFilter struct {
	Status         string
	RequiresReview *bool
	Search         string // matches name, email or registration number
	Page           int    // 1-based
	PageSize       int
}

// Normalize applies paging defaults and bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Counts are the dashboard aggregates.
type Counts struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Active        int `json:"active"`
	Rejected      int `json:"rejected"`
	PendingReview int `json:"pending_review"`
	Today         int `json:"today"`
}
