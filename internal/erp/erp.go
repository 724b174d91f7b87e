// Package erp holds the shared types for talking to the employer's HR
// system: the roster records the cache holds and the result shape the
// validation service returns.
package erp

import "time"

// EmployeeRecord is one row of the HR roster. Records are created wholesale
// on each cache refresh and never individually mutated.
type EmployeeRecord struct {
	NationalID string
	StaffID    string
	FullName   string
	Department string
	ExitDate   *time.Time
}

// ValidationResult answers "is this person a legitimate former or current
// employee, and does the name match?". It is always a structured value;
// transport failures surface in ErrMessage, never as a panic.
type ValidationResult struct {
	IsValid        bool
	Found          bool
	StaffName      string
	StaffID        string
	Department     string
	ExitDate       *time.Time
	NameSimilarity int
	IsMockData     bool
	ErrMessage     string
}

// CacheStats is a read-only observability snapshot of the employee cache.
type CacheStats struct {
	LastRefresh time.Time `json:"last_refresh"`
	RecordCount int       `json:"record_count"`
	Healthy     bool      `json:"healthy"`
	LastError   string    `json:"last_error,omitempty"`
}
