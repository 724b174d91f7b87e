package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodels "alumreg/internal/audit/models"
	auditservice "alumreg/internal/audit/service"
	auditstore "alumreg/internal/audit/store"
	"alumreg/internal/erp"
	"alumreg/internal/registration/models"
	"alumreg/internal/registration/store"
	"alumreg/internal/token"
	"alumreg/pkg/domain"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/requestcontext"
	"alumreg/pkg/testutil"
)

type stubValidator struct {
	result erp.ValidationResult
	calls  int
}

func (v *stubValidator) Validate(ctx context.Context, nationalID, fullName string) erp.ValidationResult {
	v.calls++
	return v.result
}

type sentMail struct {
	To       string
	Template string
	Vars     map[string]string
}

type recordingNotifier struct {
	sent []sentMail
	fail bool
}

func (n *recordingNotifier) Send(ctx context.Context, to, template string, vars map[string]string) error {
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	n.sent = append(n.sent, sentMail{To: to, Template: template, Vars: vars})
	return nil
}

func (n *recordingNotifier) byTemplate(template string) []sentMail {
	var out []sentMail
	for _, m := range n.sent {
		if m.Template == template {
			out = append(out, m)
		}
	}
	return out
}

type harness struct {
	svc       *Service
	store     *store.InMemoryStore
	validator *stubValidator
	notifier  *recordingNotifier
	auditor   *auditservice.Service
	tokens    *token.Service
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		store: store.NewInMemoryStore(),
		validator: &stubValidator{result: erp.ValidationResult{
			IsValid:        true,
			Found:          true,
			StaffName:      "Jane Wanjiku",
			StaffID:        "E-1001",
			Department:     "Finance",
			NameSimilarity: 100,
		}},
		notifier: &recordingNotifier{},
		auditor:  auditservice.New(auditstore.NewInMemoryStore()),
		tokens:   token.NewService(token.NewInMemoryStore(), time.Hour),
	}
	h.svc = New(h.store, h.validator, h.auditor, h.tokens, h.notifier, opts...)
	return h
}

func validInput() SubmitInput {
	staff := "00AB12C"
	return SubmitInput{
		NationalID:            "12345678",
		StaffNumber:           &staff,
		FullName:              "Jane Wanjiku",
		Email:                 "jane@example.com",
		CountryCode:           "KE",
		City:                  "Nairobi",
		Qualifications:        []string{"BSc Computer Science"},
		EngagementPreferences: []string{"Mentoring"},
		ConsentGiven:          true,
	}
}

func testCtx(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithActor(ctx, "admin@example.com")
}

func TestService_Submit(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	t.Run("confident erp match approves automatically", func(t *testing.T) {
		h := newHarness(t)
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		assert.Equal(t, "ALM-2026-00001", reg.RegistrationNumber)
		assert.Equal(t, models.StatusApproved, reg.Status)
		assert.False(t, reg.RequiresManualReview)
		assert.True(t, reg.ErpValidated)
		assert.Equal(t, "Finance", reg.ErpDepartment)
		assert.True(t, reg.ConfirmationEmailSent)
		assert.True(t, reg.ApprovalEmailSent)

		trail, err := h.auditor.Trail(ctx, reg.ID)
		require.NoError(t, err)
		require.Len(t, trail, 2)
		assert.Equal(t, auditmodels.ActionSubmission, trail[0].Action)
		assert.Equal(t, auditmodels.ActionAutomaticApproval, trail[1].Action)
	})

	t.Run("unknown national id flags for review", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{}

		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reg.Status)
		assert.True(t, reg.RequiresManualReview)
		assert.Equal(t, ReviewReasonNotFound, reg.ManualReviewReason)
	})

	t.Run("low name similarity flags for review", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{
			Found:          true,
			StaffName:      "Someone Else Entirely",
			NameSimilarity: 20,
		}

		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reg.Status)
		assert.True(t, reg.RequiresManualReview)
		assert.Equal(t, ReviewReasonMismatch, reg.ManualReviewReason)
	})

	t.Run("erp outage flags for review instead of failing", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{ErrMessage: "connection refused"}

		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reg.Status)
		assert.True(t, reg.RequiresManualReview)
		assert.Equal(t, ReviewReasonUnavailable, reg.ManualReviewReason)
	})

	t.Run("shape violations are all collected", func(t *testing.T) {
		h := newHarness(t)
		in := validInput()
		in.Email = "not-an-email"
		in.FullName = ""
		in.ConsentGiven = false

		_, err := h.svc.Submit(ctx, in)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		fields := dErrors.FieldsOf(err)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "fullName")
		assert.Contains(t, fields, "consentGiven")
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		second := validInput()
		second.StaffNumber = nil
		second.Email = "JANE@example.com"
		_, err = h.svc.Submit(ctx, second)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("numbers increment within a year", func(t *testing.T) {
		h := newHarness(t)
		first, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		second := validInput()
		second.StaffNumber = nil
		second.Email = "other@example.com"
		reg, err := h.svc.Submit(ctx, second)
		require.NoError(t, err)

		assert.Equal(t, "ALM-2026-00001", first.RegistrationNumber)
		assert.Equal(t, "ALM-2026-00002", reg.RegistrationNumber)
	})

	t.Run("failed confirmation email does not fail the submission", func(t *testing.T) {
		h := newHarness(t)
		h.notifier.fail = true

		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		assert.False(t, reg.ConfirmationEmailSent)

		stored, err := h.store.FindByID(ctx, reg.ID)
		require.NoError(t, err)
		assert.False(t, stored.ConfirmationEmailSent)
	})

	t.Run("confirmation email carries the verification token", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		mails := h.notifier.byTemplate("registration_confirmation")
		require.Len(t, mails, 1)
		assert.Equal(t, "jane@example.com", mails[0].To)
		assert.NotEmpty(t, mails[0].Vars["verification_token"])
	})
}

func TestService_Approve(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	submitFlagged := func(t *testing.T, h *harness) *models.Registration {
		t.Helper()
		h.validator.result = erp.ValidationResult{}
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		return reg
	}

	t.Run("approves a pending registration", func(t *testing.T) {
		h := newHarness(t)
		reg := submitFlagged(t, h)

		approved, err := h.svc.Approve(ctx, reg.ID, "record checked by hand")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, approved.Status)
		assert.False(t, approved.RequiresManualReview)
		assert.Equal(t, "admin@example.com", approved.ReviewedBy)
		assert.Equal(t, "record checked by hand", approved.ReviewNotes)
		assert.True(t, approved.ApprovalEmailSent)

		trail, err := h.auditor.Trail(ctx, reg.ID)
		require.NoError(t, err)
		last := trail[len(trail)-1]
		assert.Equal(t, auditmodels.ActionManualApproval, last.Action)
		assert.Equal(t, "admin@example.com", last.Actor)
	})

	t.Run("double approval is rejected and records nothing", func(t *testing.T) {
		h := newHarness(t)
		reg := submitFlagged(t, h)

		_, err := h.svc.Approve(ctx, reg.ID, "")
		require.NoError(t, err)
		before, err := h.auditor.Trail(ctx, reg.ID)
		require.NoError(t, err)
		mailsBefore := len(h.notifier.byTemplate("registration_approved"))

		_, err = h.svc.Approve(ctx, reg.ID, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		after, err := h.auditor.Trail(ctx, reg.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
		assert.Len(t, h.notifier.byTemplate("registration_approved"), mailsBefore)
	})

	t.Run("unknown registration", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Approve(ctx, domain.NewRegistrationID(), "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_Reject(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	t.Run("rejects with a reason", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{}
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		rejected, err := h.svc.Reject(ctx, reg.ID, "no matching employment history", "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, rejected.Status)
		assert.Equal(t, "no matching employment history", rejected.RejectionReason)
		assert.True(t, rejected.RejectionEmailSent)
	})

	t.Run("reason below the minimum length", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{}
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		_, err = h.svc.Reject(ctx, reg.ID, "too short", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejecting a rejected registration", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{}
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		_, err = h.svc.Reject(ctx, reg.ID, "no matching employment history", "")
		require.NoError(t, err)
		_, err = h.svc.Reject(ctx, reg.ID, "no matching employment history", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestService_Bulk(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	h := newHarness(t)
	h.validator.result = erp.ValidationResult{}

	var ids []domain.RegistrationID
	for i := 0; i < 3; i++ {
		in := validInput()
		in.StaffNumber = nil
		in.Email = fmt.Sprintf("bulk%d@example.com", i)
		reg, err := h.svc.Submit(ctx, in)
		require.NoError(t, err)
		ids = append(ids, reg.ID)
	}
	ghost := domain.NewRegistrationID()

	results := h.svc.BulkApprove(ctx, append(ids, ghost), "batch reviewed")
	require.Len(t, results, 4)

	for i := 0; i < 3; i++ {
		assert.True(t, results[i].OK, "item %d", i)
		assert.Equal(t, ids[i], results[i].ID)
	}
	assert.False(t, results[3].OK)
	assert.Contains(t, results[3].Error, "not found")

	for _, id := range ids {
		reg, err := h.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, reg.Status)
	}
}

func TestService_VerifyEmail(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	t.Run("verifying an approved registration activates it", func(t *testing.T) {
		h := newHarness(t)
		reg, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		require.Equal(t, models.StatusApproved, reg.Status)

		verified, err := h.svc.VerifyEmail(ctx, tokenFromConfirmation(t, h))
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, verified.Status)
		assert.True(t, verified.EmailVerified)
	})

	t.Run("verifying a pending registration keeps it pending", func(t *testing.T) {
		h := newHarness(t)
		h.validator.result = erp.ValidationResult{}
		_, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		verified, err := h.svc.VerifyEmail(ctx, tokenFromConfirmation(t, h))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, verified.Status)
		assert.True(t, verified.EmailVerified)
	})

	t.Run("token is single use", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Submit(ctx, validInput())
		require.NoError(t, err)

		tok := tokenFromConfirmation(t, h)
		_, err = h.svc.VerifyEmail(ctx, tok)
		require.NoError(t, err)

		_, err = h.svc.VerifyEmail(ctx, tok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown token", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.VerifyEmail(ctx, "deadbeef")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestWorkflow_ManualReviewLifecycle(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)
	h := newHarness(t)
	h.validator.result = erp.ValidationResult{}

	var reg *models.Registration

	testutil.Given(t, "a submission the HR roster does not know", func(t *testing.T) {
		var err error
		reg, err = h.svc.Submit(ctx, validInput())
		require.NoError(t, err)
		require.True(t, reg.RequiresManualReview)
	})

	testutil.When(t, "an admin approves it after checking by hand", func(t *testing.T) {
		var err error
		reg, err = h.svc.Approve(ctx, reg.ID, "paper records confirmed")
		require.NoError(t, err)
	})

	testutil.Then(t, "verifying the email activates the account", func(t *testing.T) {
		verified, err := h.svc.VerifyEmail(ctx, tokenFromConfirmation(t, h))
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, verified.Status)

		trail, err := h.svc.AuditTrail(ctx, reg.ID)
		require.NoError(t, err)
		var actions []auditmodels.Action
		for _, e := range trail {
			actions = append(actions, e.Action)
		}
		assert.Equal(t, []auditmodels.Action{
			auditmodels.ActionSubmission,
			auditmodels.ActionFlaggedForReview,
			auditmodels.ActionManualApproval,
			auditmodels.ActionEmailVerified,
		}, actions)
	})
}

func tokenFromConfirmation(t *testing.T, h *harness) string {
	t.Helper()
	mails := h.notifier.byTemplate("registration_confirmation")
	require.NotEmpty(t, mails)
	return mails[len(mails)-1].Vars["verification_token"]
}

func TestService_CheckDuplicate(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	h := newHarness(t)
	_, err := h.svc.Submit(ctx, validInput())
	require.NoError(t, err)

	t.Run("taken email", func(t *testing.T) {
		taken, err := h.svc.CheckDuplicate(ctx, DuplicateProbe{
			Field: store.DuplicateEmail, Values: []string{"jane@example.com"},
		})
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("available email", func(t *testing.T) {
		taken, err := h.svc.CheckDuplicate(ctx, DuplicateProbe{
			Field: store.DuplicateEmail, Values: []string{"free@example.com"},
		})
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("mobile requires both values", func(t *testing.T) {
		_, err := h.svc.CheckDuplicate(ctx, DuplicateProbe{
			Field: store.DuplicateMobile, Values: []string{"+254"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := h.svc.CheckDuplicate(ctx, DuplicateProbe{
			Field: "nationalId", Values: []string{"x"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestService_AuditTrailAndCounts(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	ctx := testCtx(now)

	h := newHarness(t)
	reg, err := h.svc.Submit(ctx, validInput())
	require.NoError(t, err)

	t.Run("trail requires an existing registration", func(t *testing.T) {
		_, err := h.svc.AuditTrail(ctx, domain.NewRegistrationID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("trail is oldest first", func(t *testing.T) {
		trail, err := h.svc.AuditTrail(ctx, reg.ID)
		require.NoError(t, err)
		require.NotEmpty(t, trail)
		assert.Equal(t, auditmodels.ActionSubmission, trail[0].Action)
	})

	t.Run("dashboard counts", func(t *testing.T) {
		counts, err := h.svc.DashboardCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Total)
		assert.Equal(t, 1, counts.Approved)
	})
}
