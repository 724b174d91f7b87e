// Package domain holds typed identifiers shared across features.
//
// IDs are distinct types over uuid.UUID so a registration id can never be
// passed where an admin id is expected. Construct them via the Parse
// functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "alumreg/pkg/domain-errors"
)

// RegistrationID identifies one alumni registration record.
type RegistrationID uuid.UUID

// AdminID identifies an HR admin user.
type AdminID uuid.UUID

// NewRegistrationID returns a fresh random registration id.
func NewRegistrationID() RegistrationID {
	return RegistrationID(uuid.New())
}

// ParseRegistrationID validates an external registration id string.
// Rejects empty, malformed, and nil UUIDs.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(u), nil
}

func (r RegistrationID) String() string {
	return uuid.UUID(r).String()
}

func (r RegistrationID) IsNil() bool {
	return uuid.UUID(r) == uuid.Nil
}

// MarshalText renders the id in canonical UUID form for JSON and logs.
func (r RegistrationID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(r).String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (r *RegistrationID) UnmarshalText(b []byte) error {
	id, err := ParseRegistrationID(string(b))
	if err != nil {
		return err
	}
	*r = id
	return nil
}

// NewAdminID returns a fresh random admin id.
func NewAdminID() AdminID {
	return AdminID(uuid.New())
}

// ParseAdminID validates an external admin id string.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parseUUID(s, "admin id")
	if err != nil {
		return AdminID{}, err
	}
	return AdminID(u), nil
}

func (a AdminID) String() string {
	return uuid.UUID(a).String()
}

// MarshalText renders the id in canonical UUID form for JSON and logs.
func (a AdminID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(a).String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (a *AdminID) UnmarshalText(b []byte) error {
	id, err := ParseAdminID(string(b))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}

// NationalID is a national identifier or passport number. The cache and the
// registration store both key on its normalized form.
type NationalID string

const maxNationalIDLen = 50

// ParseNationalID validates an external national id / passport string.
func ParseNationalID(s string) (NationalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "national id cannot be empty")
	}
	if len(s) > maxNationalIDLen {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "national id must be at most %d characters", maxNationalIDLen)
	}
	return NationalID(s), nil
}

func (n NationalID) String() string {
	return string(n)
}

// Normalized returns the case-insensitive matching key for this id.
func (n NationalID) Normalized() string {
	return strings.ToUpper(strings.TrimSpace(string(n)))
}
