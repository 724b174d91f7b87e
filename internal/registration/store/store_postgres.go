package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"alumreg/internal/registration/models"
	"alumreg/pkg/domain"
	"alumreg/pkg/platform/sentinel"
)

// Schema is the registrations DDL. The partial unique indexes implement the
// NULL-exempt uniqueness rules; under concurrent submissions they are the
// correctness guarantee, not the application-side checks.
const Schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id                      UUID PRIMARY KEY,
	registration_number     TEXT NOT NULL,
	national_id             TEXT NOT NULL,
	staff_number            TEXT,
	full_name               TEXT NOT NULL,
	email                   TEXT NOT NULL,
	mobile_country_code     TEXT,
	mobile_number           TEXT,
	linkedin_url            TEXT,
	country_code            TEXT NOT NULL,
	city                    TEXT NOT NULL DEFAULT '',
	city_custom             TEXT NOT NULL DEFAULT '',
	current_employer        TEXT NOT NULL DEFAULT '',
	job_title               TEXT NOT NULL DEFAULT '',
	qualifications          TEXT[] NOT NULL DEFAULT '{}',
	engagement_preferences  TEXT[] NOT NULL DEFAULT '{}',
	consent_given           BOOLEAN NOT NULL,
	erp_validated           BOOLEAN NOT NULL DEFAULT FALSE,
	erp_validated_at        TIMESTAMPTZ,
	erp_validation_attempts INT NOT NULL DEFAULT 0,
	erp_matched_name        TEXT NOT NULL DEFAULT '',
	erp_department          TEXT NOT NULL DEFAULT '',
	erp_exit_date           TIMESTAMPTZ,
	status                  TEXT NOT NULL,
	requires_manual_review  BOOLEAN NOT NULL DEFAULT FALSE,
	manual_review_reason    TEXT NOT NULL DEFAULT '',
	reviewed_by             TEXT NOT NULL DEFAULT '',
	reviewed_at             TIMESTAMPTZ,
	review_notes            TEXT NOT NULL DEFAULT '',
	approved_at             TIMESTAMPTZ,
	rejected_at             TIMESTAMPTZ,
	rejection_reason        TEXT NOT NULL DEFAULT '',
	email_verified          BOOLEAN NOT NULL DEFAULT FALSE,
	email_verified_at       TIMESTAMPTZ,
	confirmation_email_sent BOOLEAN NOT NULL DEFAULT FALSE,
	approval_email_sent     BOOLEAN NOT NULL DEFAULT FALSE,
	rejection_email_sent    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL,

	CONSTRAINT registrations_consent_check CHECK (consent_given)
);

CREATE UNIQUE INDEX IF NOT EXISTS registrations_number_key
	ON registrations (registration_number);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_email_key
	ON registrations (LOWER(email));
CREATE UNIQUE INDEX IF NOT EXISTS registrations_staff_number_key
	ON registrations (staff_number) WHERE staff_number IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS registrations_mobile_key
	ON registrations (mobile_country_code, mobile_number)
	WHERE mobile_country_code IS NOT NULL AND mobile_number IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS registrations_linkedin_key
	ON registrations (LOWER(linkedin_url)) WHERE linkedin_url IS NOT NULL;
CREATE INDEX IF NOT EXISTS registrations_status_idx ON registrations (status);
CREATE INDEX IF NOT EXISTS registrations_created_at_idx ON registrations (created_at);
`

// PostgresStore persists registrations in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed registration store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registrations table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure registrations schema: %w", err)
	}
	return nil
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return &DuplicateError{Field: DuplicateEmail}
	case strings.Contains(pqErr.Constraint, "staff_number"):
		return &DuplicateError{Field: DuplicateStaffNumber}
	case strings.Contains(pqErr.Constraint, "mobile"):
		return &DuplicateError{Field: DuplicateMobile}
	case strings.Contains(pqErr.Constraint, "linkedin"):
		return &DuplicateError{Field: DuplicateLinkedIn}
	case strings.Contains(pqErr.Constraint, "number"):
		return &DuplicateError{Field: DuplicateNumber}
	default:
		return &DuplicateError{Field: DuplicateField(pqErr.Constraint)}
	}
}

const insertColumns = `
	id, registration_number, national_id, staff_number, full_name, email,
	mobile_country_code, mobile_number, linkedin_url,
	country_code, city, city_custom, current_employer, job_title,
	qualifications, engagement_preferences, consent_given,
	erp_validated, erp_validated_at, erp_validation_attempts,
	erp_matched_name, erp_department, erp_exit_date,
	status, requires_manual_review, manual_review_reason,
	reviewed_by, reviewed_at, review_notes,
	approved_at, rejected_at, rejection_reason,
	email_verified, email_verified_at,
	confirmation_email_sent, approval_email_sent, rejection_email_sent,
	created_at, updated_at`

// Create inserts a new registration. Unique index violations come back as
// *DuplicateError.
func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	query := `INSERT INTO registrations (` + insertColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39
	)`
	_, err := s.db.ExecContext(ctx, query, s.args(reg)...)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) args(reg *models.Registration) []any {
	return []any{
		uuid.UUID(reg.ID), reg.RegistrationNumber, reg.NationalID, reg.StaffNumber,
		reg.FullName, reg.Email,
		reg.MobileCountryCode, reg.MobileNumber, reg.LinkedInURL,
		reg.CountryCode, reg.City, reg.CityCustom, reg.CurrentEmployer, reg.JobTitle,
		pq.Array(reg.Qualifications), pq.Array(reg.EngagementPreferences), reg.ConsentGiven,
		reg.ErpValidated, reg.ErpValidatedAt, reg.ErpValidationAttempts,
		reg.ErpMatchedName, reg.ErpDepartment, reg.ErpExitDate,
		string(reg.Status), reg.RequiresManualReview, reg.ManualReviewReason,
		reg.ReviewedBy, reg.ReviewedAt, reg.ReviewNotes,
		reg.ApprovedAt, reg.RejectedAt, reg.RejectionReason,
		reg.EmailVerified, reg.EmailVerifiedAt,
		reg.ConfirmationEmailSent, reg.ApprovalEmailSent, reg.RejectionEmailSent,
		reg.CreatedAt, reg.UpdatedAt,
	}
}

// Update rewrites every mutable column of a registration.
func (s *PostgresStore) Update(ctx context.Context, reg *models.Registration) error {
	query := `UPDATE registrations SET
		staff_number = $2, full_name = $3, email = $4,
		mobile_country_code = $5, mobile_number = $6, linkedin_url = $7,
		erp_validated = $8, erp_validated_at = $9, erp_validation_attempts = $10,
		erp_matched_name = $11, erp_department = $12, erp_exit_date = $13,
		status = $14, requires_manual_review = $15, manual_review_reason = $16,
		reviewed_by = $17, reviewed_at = $18, review_notes = $19,
		approved_at = $20, rejected_at = $21, rejection_reason = $22,
		email_verified = $23, email_verified_at = $24,
		confirmation_email_sent = $25, approval_email_sent = $26, rejection_email_sent = $27,
		updated_at = $28
	WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(reg.ID),
		reg.StaffNumber, reg.FullName, reg.Email,
		reg.MobileCountryCode, reg.MobileNumber, reg.LinkedInURL,
		reg.ErpValidated, reg.ErpValidatedAt, reg.ErpValidationAttempts,
		reg.ErpMatchedName, reg.ErpDepartment, reg.ErpExitDate,
		string(reg.Status), reg.RequiresManualReview, reg.ManualReviewReason,
		reg.ReviewedBy, reg.ReviewedAt, reg.ReviewNotes,
		reg.ApprovedAt, reg.RejectedAt, reg.RejectionReason,
		reg.EmailVerified, reg.EmailVerifiedAt,
		reg.ConfirmationEmailSent, reg.ApprovalEmailSent, reg.RejectionEmailSent,
		reg.UpdatedAt,
	)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID retrieves one registration.
func (s *PostgresStore) FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+insertColumns+` FROM registrations WHERE id = $1`, uuid.UUID(id))
	return scanRegistration(row)
}

// FindByEmail retrieves one registration by email, case-insensitively.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+insertColumns+` FROM registrations WHERE LOWER(email) = LOWER($1)`, email)
	return scanRegistration(row)
}

// ExistsByField reports whether any registration already claims the value.
func (s *PostgresStore) ExistsByField(ctx context.Context, field DuplicateField, values ...string) (bool, error) {
	var query string
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	switch field {
	case DuplicateEmail:
		query = `SELECT EXISTS (SELECT 1 FROM registrations WHERE LOWER(email) = LOWER($1))`
	case DuplicateStaffNumber:
		query = `SELECT EXISTS (SELECT 1 FROM registrations WHERE staff_number = $1)`
	case DuplicateMobile:
		query = `SELECT EXISTS (SELECT 1 FROM registrations WHERE mobile_country_code = $1 AND mobile_number = $2)`
	case DuplicateLinkedIn:
		query = `SELECT EXISTS (SELECT 1 FROM registrations WHERE LOWER(linkedin_url) = LOWER($1))`
	default:
		return false, fmt.Errorf("unsupported duplicate field %q", field)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate %s: %w", field, err)
	}
	return exists, nil
}

// CountByYear counts registrations created in the given year.
func (s *PostgresStore) CountByYear(ctx context.Context, year int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE EXTRACT(YEAR FROM created_at) = $1`, year,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations for year %d: %w", year, err)
	}
	return n, nil
}

// List returns a filtered, paged slice plus the total match count.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Registration, int, error) {
	filter.Normalize()

	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.RequiresReview != nil {
		where = append(where, "requires_manual_review = "+arg(*filter.RequiresReview))
	}
	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		where = append(where,
			"(LOWER(full_name) LIKE "+p+" OR LOWER(email) LIKE "+p+" OR LOWER(registration_number) LIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE "+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	query := "SELECT " + insertColumns + " FROM registrations WHERE " + cond +
		" ORDER BY created_at DESC LIMIT " + arg(filter.PageSize) +
		" OFFSET " + arg((filter.Page-1)*filter.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var result []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registrations: %w", err)
	}
	return result, total, nil
}

// Counts computes the dashboard aggregates in one round trip.
func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'Approved'),
			COUNT(*) FILTER (WHERE status = 'Active'),
			COUNT(*) FILTER (WHERE status = 'Rejected'),
			COUNT(*) FILTER (WHERE requires_manual_review),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now() AT TIME ZONE 'UTC') AT TIME ZONE 'UTC')
		FROM registrations`,
	).Scan(&c.Total, &c.Pending, &c.Approved, &c.Active, &c.Rejected, &c.PendingReview, &c.Today)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg models.Registration
		id  uuid.UUID
		sts string
	)
	err := row.Scan(
		&id, &reg.RegistrationNumber, &reg.NationalID, &reg.StaffNumber,
		&reg.FullName, &reg.Email,
		&reg.MobileCountryCode, &reg.MobileNumber, &reg.LinkedInURL,
		&reg.CountryCode, &reg.City, &reg.CityCustom, &reg.CurrentEmployer, &reg.JobTitle,
		pq.Array(&reg.Qualifications), pq.Array(&reg.EngagementPreferences), &reg.ConsentGiven,
		&reg.ErpValidated, &reg.ErpValidatedAt, &reg.ErpValidationAttempts,
		&reg.ErpMatchedName, &reg.ErpDepartment, &reg.ErpExitDate,
		&sts, &reg.RequiresManualReview, &reg.ManualReviewReason,
		&reg.ReviewedBy, &reg.ReviewedAt, &reg.ReviewNotes,
		&reg.ApprovedAt, &reg.RejectedAt, &reg.RejectionReason,
		&reg.EmailVerified, &reg.EmailVerifiedAt,
		&reg.ConfirmationEmailSent, &reg.ApprovalEmailSent, &reg.RejectionEmailSent,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.ID = domain.RegistrationID(id)
	reg.Status = models.Status(sts)
	return &reg, nil
}
