package models

import (
	"fmt"
	"time"

	"alumreg/pkg/domain"
	dErrors "alumreg/pkg/domain-errors"
)

// Registration is the aggregate root for one alumni applicant.
//
// Invariants:
//   - RegistrationNumber is assigned exactly once at creation and never
//     changes; the sequence is strictly increasing per year (the store's
//     unique constraint is the actual correctness guarantee)
//   - ConsentGiven must be true to persist
//   - At most one registration per email, per staff number (when present),
//     per mobile country-code+number pair (when both present), and per
//     LinkedIn URL (when present); NULLs are exempt from uniqueness
//   - Status transitions follow the Status state machine; Active and
//     Rejected are terminal
type Registration struct {
	ID                 domain.RegistrationID `json:"id"`
	RegistrationNumber string                `json:"registration_number"`

	NationalID  string  `json:"national_id"`
	StaffNumber *string `json:"staff_number,omitempty"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`

	MobileCountryCode *string `json:"mobile_country_code,omitempty"`
	MobileNumber      *string `json:"mobile_number,omitempty"`
	LinkedInURL       *string `json:"linkedin_url,omitempty"`

	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	CityCustom  string `json:"city_custom,omitempty"`

	CurrentEmployer string `json:"current_employer,omitempty"`
	JobTitle        string `json:"job_title,omitempty"`

	Qualifications        []string `json:"qualifications"`
	EngagementPreferences []string `json:"engagement_preferences"`

	ConsentGiven bool `json:"consent_given"`

	ErpValidated          bool       `json:"erp_validated"`
	ErpValidatedAt        *time.Time `json:"erp_validated_at,omitempty"`
	ErpValidationAttempts int        `json:"erp_validation_attempts"`
	ErpMatchedName        string     `json:"erp_matched_name,omitempty"`
	ErpDepartment         string     `json:"erp_department,omitempty"`
	ErpExitDate           *time.Time `json:"erp_exit_date,omitempty"`

	Status Status `json:"status"`

	RequiresManualReview bool       `json:"requires_manual_review"`
	ManualReviewReason   string     `json:"manual_review_reason,omitempty"`
	ReviewedBy           string     `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes          string     `json:"review_notes,omitempty"`

	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`

	ConfirmationEmailSent bool `json:"confirmation_email_sent"`
	ApprovalEmailSent     bool `json:"approval_email_sent"`
	RejectionEmailSent    bool `json:"rejection_email_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRegistration constructs a Pending registration. Field-shape validation
// happens in the validate package before this; the constructor enforces the
// invariants that must hold regardless of where the data came from.
func NewRegistration(id domain.RegistrationID, number string, now time.Time) (*Registration, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id cannot be nil")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration number cannot be empty")
	}
	return &Registration{
		ID:                 id,
		RegistrationNumber: number,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// FormatNumber renders the human-readable registration number
// PREFIX-YYYY-NNNNN for the given year and sequence.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// HasMobile reports whether both halves of the mobile pair are present.
func (r *Registration) HasMobile() bool {
	return r.MobileCountryCode != nil && *r.MobileCountryCode != "" &&
		r.MobileNumber != nil && *r.MobileNumber != ""
}

// CanApprove checks whether the registration may transition to Approved.
func (r *Registration) CanApprove() error {
	if r.Status == StatusApproved || r.Status == StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, "registration is already approved")
	}
	if !r.Status.CanTransitionTo(StatusApproved) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot approve a registration in status %s", r.Status)
	}
	return nil
}

// ApplyApproval transitions to Approved and clears any review flag.
// Call CanApprove first.
func (r *Registration) ApplyApproval(now time.Time, reviewer string) {
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.RequiresManualReview = false
	if reviewer != "" {
		r.ReviewedBy = reviewer
		r.ReviewedAt = &now
	}
	r.UpdatedAt = now
}

// CanReject checks whether the registration may transition to Rejected.
func (r *Registration) CanReject() error {
	if r.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot reject a registration in terminal status %s", r.Status)
	}
	return nil
}

// ApplyRejection transitions to Rejected with the given reason.
// Call CanReject first; the service enforces the reason's minimum length.
func (r *Registration) ApplyRejection(now time.Time, reviewer, reason string) {
	r.Status = StatusRejected
	r.RejectedAt = &now
	r.RejectionReason = reason
	r.RequiresManualReview = false
	if reviewer != "" {
		r.ReviewedBy = reviewer
		r.ReviewedAt = &now
	}
	r.UpdatedAt = now
}

// FlagForReview marks the registration for human review. Status stays
// Pending; the flag is orthogonal.
func (r *Registration) FlagForReview(reason string, now time.Time) {
	r.RequiresManualReview = true
	r.ManualReviewReason = reason
	r.UpdatedAt = now
}

// RecordErpMatch stores a confident validation outcome.
func (r *Registration) RecordErpMatch(name, department string, exitDate *time.Time, now time.Time) {
	r.ErpValidated = true
	r.ErpValidatedAt = &now
	r.ErpMatchedName = name
	r.ErpDepartment = department
	r.ErpExitDate = exitDate
	r.UpdatedAt = now
}

// CanVerifyEmail checks whether email verification applies.
func (r *Registration) CanVerifyEmail() error {
	if r.EmailVerified {
		return dErrors.New(dErrors.CodeInvalidState, "email is already verified")
	}
	if r.Status == StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "registration has been rejected")
	}
	return nil
}

// ApplyEmailVerification records verification; an Approved registration is
// promoted to Active.
func (r *Registration) ApplyEmailVerification(now time.Time) {
	r.EmailVerified = true
	r.EmailVerifiedAt = &now
	if r.Status == StatusApproved {
		r.Status = StatusActive
	}
	r.UpdatedAt = now
}
