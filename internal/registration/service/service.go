// Package service implements the alumni registration workflow: submission,
// employment validation, the approval state machine, email verification and
// the admin review surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditmodels "alumreg/internal/audit/models"
	auditservice "alumreg/internal/audit/service"
	"alumreg/internal/email"
	"alumreg/internal/erp"
	regmetrics "alumreg/internal/registration/metrics"
	"alumreg/internal/registration/models"
	"alumreg/internal/registration/store"
	"alumreg/internal/registration/validate"
	"alumreg/internal/token"
	"alumreg/pkg/domain"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/sentinel"
	platformstrings "alumreg/pkg/platform/strings"
	"alumreg/pkg/requestcontext"
)

// Store is the persistence surface the workflow needs.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	Update(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	FindByEmail(ctx context.Context, email string) (*models.Registration, error)
	ExistsByField(ctx context.Context, field store.DuplicateField, values ...string) (bool, error)
	CountByYear(ctx context.Context, year int) (int, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Registration, int, error)
	Counts(ctx context.Context) (store.Counts, error)
}

// ErpValidator checks an applicant against the employer's HR records.
type ErpValidator interface {
	Validate(ctx context.Context, nationalID, fullName string) erp.ValidationResult
}

// Auditor records workflow events and serves the trail back.
type Auditor interface {
	Append(ctx context.Context, rec AuditRecord, now time.Time)
	Trail(ctx context.Context, id domain.RegistrationID) ([]*auditmodels.Entry, error)
}

// AuditRecord aliases the audit service's record shape so the workflow's
// call sites stay terse.
type AuditRecord = auditservice.Record

// Tokens issues and redeems email verification tokens.
type Tokens interface {
	Issue(ctx context.Context, id domain.RegistrationID, email string) (string, error)
	Consume(ctx context.Context, tok string) (token.Record, error)
}

// Manual review reasons. Stored verbatim on the registration and in the
// audit trail so reviewers see why a record was flagged.
const (
	ReviewReasonNotFound    = "no employment record found"
	ReviewReasonMismatch    = "name does not match employment record"
	ReviewReasonUnavailable = "employment verification unavailable"
)

const systemActor = "system"

// createRetries bounds the registration-number conflict retry loop. Two
// submissions racing for the same sequence is rare; three attempts is
// plenty.
const createRetries = 3

// Service orchestrates the registration workflow.
type Service struct {
	store     Store
	validator ErpValidator
	auditor   Auditor
	tokens    Tokens
	notifier  email.Notifier
	logger    *slog.Logger
	metrics   *regmetrics.Metrics

	numberPrefix    string
	minRejectReason int
	bulkConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the workflow metrics.
func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNumberPrefix overrides the registration number prefix.
func WithNumberPrefix(prefix string) Option {
	return func(s *Service) { s.numberPrefix = prefix }
}

// WithMinRejectReasonLen overrides the minimum rejection reason length.
func WithMinRejectReasonLen(n int) Option {
	return func(s *Service) { s.minRejectReason = n }
}

// WithBulkConcurrency bounds how many bulk items run at once.
func WithBulkConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

// New constructs the workflow service.
func New(st Store, validator ErpValidator, auditor Auditor, tokens Tokens, notifier email.Notifier, opts ...Option) *Service {
	s := &Service{
		store:           st,
		validator:       validator,
		auditor:         auditor,
		tokens:          tokens,
		notifier:        notifier,
		logger:          slog.Default(),
		numberPrefix:    "ALM",
		minRejectReason: 10,
		bulkConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput carries one registration submission. Optional fields are nil
// pointers.
type SubmitInput struct {
	NationalID            string
	StaffNumber           *string
	FullName              string
	Email                 string
	MobileCountryCode     *string
	MobileNumber          *string
	LinkedInURL           *string
	CountryCode           string
	City                  string
	CityCustom            string
	CurrentEmployer       string
	JobTitle              string
	Qualifications        []string
	EngagementPreferences []string
	ConsentGiven          bool
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Submit runs the full intake pipeline: shape validation, duplicate checks,
// number assignment, employment validation, persistence, auditing and the
// confirmation email. An unreachable or inconclusive HR system never fails
// the submission; it flags the registration for manual review instead.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Registration, error) {
	started := time.Now()
	reg, err := s.submit(ctx, in)
	if s.metrics != nil {
		s.metrics.SubmitDuration.Observe(time.Since(started).Seconds())
		switch {
		case err == nil:
			s.metrics.Submissions.WithLabelValues("accepted").Inc()
		case dErrors.HasCode(err, dErrors.CodeValidation):
			s.metrics.Submissions.WithLabelValues("invalid").Inc()
		case dErrors.HasCode(err, dErrors.CodeConflict):
			s.metrics.Submissions.WithLabelValues("duplicate").Inc()
		default:
			s.metrics.Submissions.WithLabelValues("error").Inc()
		}
	}
	return reg, err
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (*models.Registration, error) {
	in.Qualifications = platformstrings.DedupeAndTrimFold(in.Qualifications)
	in.EngagementPreferences = platformstrings.DedupeAndTrimFold(in.EngagementPreferences)

	if violations := validate.Check(validate.Submission{
		StaffNumber:           deref(in.StaffNumber),
		NationalID:            in.NationalID,
		FullName:              in.FullName,
		Email:                 in.Email,
		MobileCountryCode:     deref(in.MobileCountryCode),
		MobileNumber:          deref(in.MobileNumber),
		CountryCode:           in.CountryCode,
		City:                  in.City,
		CityCustom:            in.CityCustom,
		LinkedInURL:           deref(in.LinkedInURL),
		Qualifications:        in.Qualifications,
		EngagementPreferences: in.EngagementPreferences,
		ConsentGiven:          in.ConsentGiven,
	}); len(violations) > 0 {
		return nil, dErrors.NewValidation("submission failed validation", violations)
	}

	if err := s.checkDuplicates(ctx, in); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := s.createWithNumber(ctx, in, now)
	if err != nil {
		return nil, err
	}

	s.auditor.Append(ctx, AuditRecord{
		RegistrationID: reg.ID,
		Action:         auditmodels.ActionSubmission,
		Actor:          reg.Email,
		NewStatus:      string(reg.Status),
	}, now)

	s.sendConfirmation(ctx, reg)
	s.runErpValidation(ctx, reg, now)

	if err := s.store.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("persist post-submission state: %w", err)
	}
	return reg, nil
}

func (s *Service) checkDuplicates(ctx context.Context, in SubmitInput) error {
	type probe struct {
		field  store.DuplicateField
		values []string
	}
	probes := []probe{{store.DuplicateEmail, []string{in.Email}}}
	if v := deref(in.StaffNumber); v != "" {
		probes = append(probes, probe{store.DuplicateStaffNumber, []string{v}})
	}
	if cc, num := deref(in.MobileCountryCode), deref(in.MobileNumber); cc != "" && num != "" {
		probes = append(probes, probe{store.DuplicateMobile, []string{cc, num}})
	}
	if v := deref(in.LinkedInURL); v != "" {
		probes = append(probes, probe{store.DuplicateLinkedIn, []string{v}})
	}

	for _, p := range probes {
		exists, err := s.store.ExistsByField(ctx, p.field, p.values...)
		if err != nil {
			return fmt.Errorf("duplicate check %s: %w", p.field, err)
		}
		if exists {
			return dErrors.Newf(dErrors.CodeConflict, "a registration with this %s already exists", p.field)
		}
	}
	return nil
}

// createWithNumber assigns the next PREFIX-YYYY-NNNNN number and inserts.
// The store's unique constraint is the real sequencing guard; on a number
// collision the sequence is recomputed and the insert retried.
func (s *Service) createWithNumber(ctx context.Context, in SubmitInput, now time.Time) (*models.Registration, error) {
	for attempt := 0; attempt < createRetries; attempt++ {
		seq, err := s.store.CountByYear(ctx, now.Year())
		if err != nil {
			return nil, fmt.Errorf("next registration sequence: %w", err)
		}
		number := models.FormatNumber(s.numberPrefix, now.Year(), seq+1+attempt)

		reg, err := models.NewRegistration(domain.NewRegistrationID(), number, now)
		if err != nil {
			return nil, err
		}
		s.fill(reg, in)

		err = s.store.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}

		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			if dup.Field == store.DuplicateNumber {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeConflict,
				fmt.Sprintf("a registration with this %s already exists", dup.Field))
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a registration number")
}

func (s *Service) fill(reg *models.Registration, in SubmitInput) {
	reg.NationalID = in.NationalID
	reg.StaffNumber = in.StaffNumber
	reg.FullName = in.FullName
	reg.Email = in.Email
	reg.MobileCountryCode = in.MobileCountryCode
	reg.MobileNumber = in.MobileNumber
	reg.LinkedInURL = in.LinkedInURL
	reg.CountryCode = in.CountryCode
	reg.City = in.City
	reg.CityCustom = in.CityCustom
	reg.CurrentEmployer = in.CurrentEmployer
	reg.JobTitle = in.JobTitle
	reg.Qualifications = in.Qualifications
	reg.EngagementPreferences = in.EngagementPreferences
	reg.ConsentGiven = in.ConsentGiven
}

// runErpValidation applies employment-check policy to a fresh submission. A
// confident match approves automatically; anything else flags for review.
func (s *Service) runErpValidation(ctx context.Context, reg *models.Registration, now time.Time) {
	result := s.validator.Validate(ctx, reg.NationalID, reg.FullName)
	reg.ErpValidationAttempts++

	switch {
	case result.ErrMessage != "":
		s.flag(ctx, reg, ReviewReasonUnavailable, now)
		s.logger.WarnContext(ctx, "erp validation unavailable",
			"registration_id", reg.ID.String(),
			"error", result.ErrMessage)

	case !result.Found:
		s.flag(ctx, reg, ReviewReasonNotFound, now)

	case !result.IsValid:
		s.flag(ctx, reg, ReviewReasonMismatch, now)

	default:
		reg.RecordErpMatch(result.StaffName, result.Department, result.ExitDate, now)
		reg.ApplyApproval(now, systemActor)
		s.auditor.Append(ctx, AuditRecord{
			RegistrationID: reg.ID,
			Action:         auditmodels.ActionAutomaticApproval,
			Actor:          systemActor,
			PrevStatus:     string(models.StatusPending),
			NewStatus:      string(reg.Status),
			Notes:          fmt.Sprintf("name similarity %d", result.NameSimilarity),
		}, now)
		if s.metrics != nil {
			s.metrics.Approvals.WithLabelValues("automatic").Inc()
		}
		s.sendApproval(ctx, reg)
	}
}

func (s *Service) flag(ctx context.Context, reg *models.Registration, reason string, now time.Time) {
	reg.FlagForReview(reason, now)
	s.auditor.Append(ctx, AuditRecord{
		RegistrationID: reg.ID,
		Action:         auditmodels.ActionFlaggedForReview,
		Actor:          systemActor,
		PrevStatus:     string(reg.Status),
		NewStatus:      string(reg.Status),
		Reason:         reason,
	}, now)
	if s.metrics != nil {
		s.metrics.FlaggedForReview.Inc()
	}
}

func (s *Service) sendConfirmation(ctx context.Context, reg *models.Registration) {
	tok, err := s.tokens.Issue(ctx, reg.ID, reg.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			"registration_id", reg.ID.String(), "error", err)
		return
	}
	err = s.notifier.Send(ctx, reg.Email, email.TemplateConfirmation, map[string]string{
		"full_name":           reg.FullName,
		"registration_number": reg.RegistrationNumber,
		"verification_token":  tok,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send confirmation email",
			"registration_id", reg.ID.String(), "error", err)
		return
	}
	reg.ConfirmationEmailSent = true
}

func (s *Service) sendApproval(ctx context.Context, reg *models.Registration) {
	if reg.ApprovalEmailSent {
		return
	}
	err := s.notifier.Send(ctx, reg.Email, email.TemplateApproval, map[string]string{
		"full_name":           reg.FullName,
		"registration_number": reg.RegistrationNumber,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send approval email",
			"registration_id", reg.ID.String(), "error", err)
		return
	}
	reg.ApprovalEmailSent = true
}

func (s *Service) sendRejection(ctx context.Context, reg *models.Registration) {
	if reg.RejectionEmailSent {
		return
	}
	err := s.notifier.Send(ctx, reg.Email, email.TemplateRejection, map[string]string{
		"full_name":           reg.FullName,
		"registration_number": reg.RegistrationNumber,
		"reason":              reg.RejectionReason,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send rejection email",
			"registration_id", reg.ID.String(), "error", err)
		return
	}
	reg.RejectionEmailSent = true
}

// Approve transitions a registration to Approved. Approving twice returns
// an invalid-state error and records nothing.
func (s *Service) Approve(ctx context.Context, id domain.RegistrationID, notes string) (*models.Registration, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := reg.CanApprove(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	prev := reg.Status
	reg.ApplyApproval(now, requestcontext.Actor(ctx))
	reg.ReviewNotes = notes
	s.sendApproval(ctx, reg)

	if err := s.store.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("persist approval: %w", err)
	}

	s.auditor.Append(ctx, AuditRecord{
		RegistrationID: reg.ID,
		Action:         auditmodels.ActionManualApproval,
		Actor:          requestcontext.Actor(ctx),
		PrevStatus:     string(prev),
		NewStatus:      string(reg.Status),
		Notes:          notes,
	}, now)
	if s.metrics != nil {
		s.metrics.Approvals.WithLabelValues("manual").Inc()
	}
	return reg, nil
}

// Reject transitions a registration to Rejected. The reason is mandatory
// and must meet the configured minimum length.
func (s *Service) Reject(ctx context.Context, id domain.RegistrationID, reason, notes string) (*models.Registration, error) {
	if len(reason) < s.minRejectReason {
		return nil, dErrors.NewValidation("rejection reason is too short", map[string]string{
			"reason": fmt.Sprintf("must be at least %d characters", s.minRejectReason),
		})
	}

	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := reg.CanReject(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	prev := reg.Status
	reg.ApplyRejection(now, requestcontext.Actor(ctx), reason)
	reg.ReviewNotes = notes
	s.sendRejection(ctx, reg)

	if err := s.store.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("persist rejection: %w", err)
	}

	s.auditor.Append(ctx, AuditRecord{
		RegistrationID: reg.ID,
		Action:         auditmodels.ActionRejection,
		Actor:          requestcontext.Actor(ctx),
		PrevStatus:     string(prev),
		NewStatus:      string(reg.Status),
		Reason:         reason,
		Notes:          notes,
	}, now)
	if s.metrics != nil {
		s.metrics.Rejections.Inc()
	}
	return reg, nil
}

// BulkResult reports one item's outcome in a bulk operation.
type BulkResult struct {
	ID    domain.RegistrationID `json:"id"`
	OK    bool                  `json:"ok"`
	Error string                `json:"error,omitempty"`
}

// BulkApprove approves many registrations. Items are independent; one
// failure never aborts the rest.
func (s *Service) BulkApprove(ctx context.Context, ids []domain.RegistrationID, notes string) []BulkResult {
	return s.bulk(ctx, ids, func(ctx context.Context, id domain.RegistrationID) error {
		_, err := s.Approve(ctx, id, notes)
		return err
	})
}

// BulkReject rejects many registrations with a shared reason.
func (s *Service) BulkReject(ctx context.Context, ids []domain.RegistrationID, reason, notes string) []BulkResult {
	return s.bulk(ctx, ids, func(ctx context.Context, id domain.RegistrationID) error {
		_, err := s.Reject(ctx, id, reason, notes)
		return err
	})
}

func (s *Service) bulk(ctx context.Context, ids []domain.RegistrationID, op func(context.Context, domain.RegistrationID) error) []BulkResult {
	results := make([]BulkResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := op(gctx, id); err != nil {
				results[i] = BulkResult{ID: id, Error: err.Error()}
				return nil
			}
			results[i] = BulkResult{ID: id, OK: true}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// VerifyEmail redeems a verification token. An Approved registration is
// promoted to Active; a Pending one stays Pending with the email marked
// verified.
func (s *Service) VerifyEmail(ctx context.Context, tok string) (*models.Registration, error) {
	rec, err := s.tokens.Consume(ctx, tok)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification token is invalid or has expired")
		}
		return nil, fmt.Errorf("redeem verification token: %w", err)
	}

	reg, err := s.find(ctx, rec.RegistrationID)
	if err != nil {
		return nil, err
	}
	if err := reg.CanVerifyEmail(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	prev := reg.Status
	reg.ApplyEmailVerification(now)

	if err := s.store.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("persist email verification: %w", err)
	}

	s.auditor.Append(ctx, AuditRecord{
		RegistrationID: reg.ID,
		Action:         auditmodels.ActionEmailVerified,
		Actor:          reg.Email,
		PrevStatus:     string(prev),
		NewStatus:      string(reg.Status),
	}, now)
	if s.metrics != nil {
		s.metrics.Verifications.Inc()
	}
	return reg, nil
}

// DuplicateProbe is one pre-submission duplicate check.
type DuplicateProbe struct {
	Field  store.DuplicateField
	Values []string
}

// CheckDuplicate answers the pre-submission "is this taken" question.
func (s *Service) CheckDuplicate(ctx context.Context, probe DuplicateProbe) (bool, error) {
	switch probe.Field {
	case store.DuplicateEmail, store.DuplicateStaffNumber, store.DuplicateLinkedIn:
		if len(probe.Values) != 1 || probe.Values[0] == "" {
			return false, dErrors.Newf(dErrors.CodeInvalidInput, "%s check requires one value", probe.Field)
		}
	case store.DuplicateMobile:
		if len(probe.Values) != 2 || probe.Values[0] == "" || probe.Values[1] == "" {
			return false, dErrors.New(dErrors.CodeInvalidInput, "mobile check requires a calling code and a number")
		}
	default:
		return false, dErrors.Newf(dErrors.CodeInvalidInput, "unknown duplicate field %q", probe.Field)
	}

	exists, err := s.store.ExistsByField(ctx, probe.Field, probe.Values...)
	if err != nil {
		return false, fmt.Errorf("duplicate check %s: %w", probe.Field, err)
	}
	if s.metrics != nil {
		result := "available"
		if exists {
			result = "taken"
		}
		s.metrics.DuplicateChecks.WithLabelValues(result).Inc()
	}
	return exists, nil
}

// Get returns one registration by id.
func (s *Service) Get(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	return s.find(ctx, id)
}

// GetByEmail returns one registration by email.
func (s *Service) GetByEmail(ctx context.Context, addr string) (*models.Registration, error) {
	reg, err := s.store.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, fmt.Errorf("find registration by email: %w", err)
	}
	return reg, nil
}

// List returns a filtered page of registrations and the total match count.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.Registration, int, error) {
	return s.store.List(ctx, filter)
}

// AuditTrail returns a registration's audit entries, oldest first. The
// registration must exist.
func (s *Service) AuditTrail(ctx context.Context, id domain.RegistrationID) ([]*auditmodels.Entry, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	return s.auditor.Trail(ctx, id)
}

// DashboardCounts returns the admin dashboard aggregates.
func (s *Service) DashboardCounts(ctx context.Context) (store.Counts, error) {
	return s.store.Counts(ctx)
}

func (s *Service) find(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}
