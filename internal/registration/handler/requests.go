package handler

import (
	"strings"

	"alumreg/internal/registration/service"
	dErrors "alumreg/pkg/domain-errors"
)

// SubmitRequest is the public submission payload. Field names mirror the
// registration form.
type SubmitRequest struct {
	NationalID            string   `json:"nationalId"`
	StaffNumber           string   `json:"staffNumber,omitempty"`
	FullName              string   `json:"fullName"`
	Email                 string   `json:"email"`
	MobileCountryCode     string   `json:"mobileCountryCode,omitempty"`
	MobileNumber          string   `json:"mobileNumber,omitempty"`
	LinkedInURL           string   `json:"linkedinUrl,omitempty"`
	CountryCode           string   `json:"countryCode"`
	City                  string   `json:"city"`
	CityCustom            string   `json:"cityCustom,omitempty"`
	CurrentEmployer       string   `json:"currentEmployer,omitempty"`
	JobTitle              string   `json:"jobTitle,omitempty"`
	Qualifications        []string `json:"qualifications"`
	EngagementPreferences []string `json:"engagementPreferences"`
	ConsentGiven          bool     `json:"consentGiven"`
}

// Validate normalizes whitespace. The field-shape rules live in the
// workflow's validation table, which reports every violation at once;
// duplicating any of them here would short-circuit that.
func (r *SubmitRequest) Validate() error {
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.StaffNumber = strings.TrimSpace(r.StaffNumber)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.MobileCountryCode = strings.TrimSpace(r.MobileCountryCode)
	r.MobileNumber = strings.TrimSpace(r.MobileNumber)
	r.LinkedInURL = strings.TrimSpace(r.LinkedInURL)
	r.CountryCode = strings.ToUpper(strings.TrimSpace(r.CountryCode))
	r.City = strings.TrimSpace(r.City)
	r.CityCustom = strings.TrimSpace(r.CityCustom)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToInput converts the request to the workflow's input shape.
func (r *SubmitRequest) ToInput() service.SubmitInput {
	return service.SubmitInput{
		NationalID:            r.NationalID,
		StaffNumber:           optional(r.StaffNumber),
		FullName:              r.FullName,
		Email:                 r.Email,
		MobileCountryCode:     optional(r.MobileCountryCode),
		MobileNumber:          optional(r.MobileNumber),
		LinkedInURL:           optional(r.LinkedInURL),
		CountryCode:           r.CountryCode,
		City:                  r.City,
		CityCustom:            r.CityCustom,
		CurrentEmployer:       r.CurrentEmployer,
		JobTitle:              r.JobTitle,
		Qualifications:        r.Qualifications,
		EngagementPreferences: r.EngagementPreferences,
		ConsentGiven:          r.ConsentGiven,
	}
}

// ApproveRequest is the manual approval payload.
type ApproveRequest struct {
	Notes string `json:"notes,omitempty"`
}

// Validate trims the notes.
func (r *ApproveRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// RejectRequest is the rejection payload.
type RejectRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// Validate requires a reason; its minimum length is workflow policy.
func (r *RejectRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "a rejection reason is required")
	}
	return nil
}

const maxBulkItems = 100

// BulkApproveRequest approves a batch of registrations.
type BulkApproveRequest struct {
	IDs   []string `json:"ids"`
	Notes string   `json:"notes,omitempty"`
}

// Validate bounds the batch size.
func (r *BulkApproveRequest) Validate() error {
	return validateBulkIDs(r.IDs)
}

// BulkRejectRequest rejects a batch with a shared reason.
type BulkRejectRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
	Notes  string   `json:"notes,omitempty"`
}

// Validate bounds the batch size and requires a reason.
func (r *BulkRejectRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "a rejection reason is required")
	}
	return validateBulkIDs(r.IDs)
}

func validateBulkIDs(ids []string) error {
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one registration id is required")
	}
	if len(ids) > maxBulkItems {
		return dErrors.Newf(dErrors.CodeInvalidInput, "at most %d registrations per batch", maxBulkItems)
	}
	return nil
}
