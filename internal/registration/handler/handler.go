// Package handler exposes the registration workflow over HTTP: the public
// submission surface and the admin review console.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auditmodels "alumreg/internal/audit/models"
	"alumreg/internal/registration/models"
	"alumreg/internal/registration/service"
	"alumreg/internal/registration/store"
	"alumreg/pkg/domain"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/httputil"
	"alumreg/pkg/requestcontext"
)

// Workflow is the slice of the registration service the handlers need.
type Workflow interface {
	Submit(ctx context.Context, in service.SubmitInput) (*models.Registration, error)
	Approve(ctx context.Context, id domain.RegistrationID, notes string) (*models.Registration, error)
	Reject(ctx context.Context, id domain.RegistrationID, reason, notes string) (*models.Registration, error)
	BulkApprove(ctx context.Context, ids []domain.RegistrationID, notes string) []service.BulkResult
	BulkReject(ctx context.Context, ids []domain.RegistrationID, reason, notes string) []service.BulkResult
	VerifyEmail(ctx context.Context, tok string) (*models.Registration, error)
	CheckDuplicate(ctx context.Context, probe service.DuplicateProbe) (bool, error)
	Get(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	GetByEmail(ctx context.Context, email string) (*models.Registration, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Registration, int, error)
	AuditTrail(ctx context.Context, id domain.RegistrationID) ([]*auditmodels.Entry, error)
	DashboardCounts(ctx context.Context) (store.Counts, error)
}

// Handler wires the workflow to chi routes.
type Handler struct {
	workflow Workflow
	logger   *slog.Logger
}

// New constructs the registration handler.
func New(workflow Workflow, logger *slog.Logger) *Handler {
	return &Handler{workflow: workflow, logger: logger}
}

// RegisterPublic mounts the unauthenticated applicant-facing routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/registrations", h.HandleSubmit)
	r.Get("/registrations/check-duplicate", h.HandleCheckDuplicate)
	r.Get("/registrations/status", h.HandleStatus)
	r.Get("/registrations/verify-email", h.HandleVerifyEmail)
}

// RegisterAdmin mounts the review console routes on an admin-guarded router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/registrations", h.HandleList)
	r.Get("/registrations/{id}", h.HandleGet)
	r.Post("/registrations/{id}/approve", h.HandleApprove)
	r.Post("/registrations/{id}/reject", h.HandleReject)
	r.Post("/registrations/bulk/approve", h.HandleBulkApprove)
	r.Post("/registrations/bulk/reject", h.HandleBulkReject)
	r.Get("/registrations/{id}/audit", h.HandleAuditTrail)
	r.Get("/dashboard/counts", h.HandleDashboardCounts)
}

// HandleSubmit accepts a new registration.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	reg, err := h.workflow.Submit(ctx, req.ToInput())
	if err != nil {
		h.logError(ctx, "submission failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toStatusResponse(reg))
}

// HandleCheckDuplicate answers "is this value taken" before submission.
// field selects what to check; mobile needs both code and number params.
func (h *Handler) HandleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	field := store.DuplicateField(q.Get("field"))

	probe := service.DuplicateProbe{Field: field}
	if field == store.DuplicateMobile {
		probe.Values = []string{q.Get("code"), q.Get("number")}
	} else {
		probe.Values = []string{q.Get("value")}
	}

	exists, err := h.workflow.CheckDuplicate(ctx, probe)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DuplicateResponse{Field: string(field), Exists: exists})
}

// HandleStatus looks a registration up by id or email.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		reg *models.Registration
		err error
	)
	switch {
	case q.Get("id") != "":
		var id domain.RegistrationID
		id, err = domain.ParseRegistrationID(q.Get("id"))
		if err == nil {
			reg, err = h.workflow.Get(ctx, id)
		}
	case q.Get("email") != "":
		reg, err = h.workflow.GetByEmail(ctx, q.Get("email"))
	default:
		err = dErrors.New(dErrors.CodeInvalidInput, "an id or email query parameter is required")
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(reg))
}

// HandleVerifyEmail redeems a verification token.
func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := r.URL.Query().Get("token")
	if tok == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "a token query parameter is required"))
		return
	}

	reg, err := h.workflow.VerifyEmail(ctx, tok)
	if err != nil {
		h.logError(ctx, "email verification failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(reg))
}

// HandleList returns a filtered page of registrations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ListFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if v := q.Get("requiresReview"); v != "" {
		b := v == "true"
		filter.RequiresReview = &b
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	filter.Normalize()

	regs, total, err := h.workflow.List(ctx, filter)
	if err != nil {
		h.logError(ctx, "list registrations failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Items:    regs,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// HandleGet returns one full registration for the admin console.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	reg, err := h.workflow.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleApprove approves one registration.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	reg, err := h.workflow.Approve(ctx, id, req.Notes)
	if err != nil {
		h.logError(ctx, "approval failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleReject rejects one registration.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	reg, err := h.workflow.Reject(ctx, id, req.Reason, req.Notes)
	if err != nil {
		h.logError(ctx, "rejection failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleBulkApprove approves a batch; per-item outcomes are reported, a
// failed item never aborts the rest.
func (h *Handler) HandleBulkApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BulkApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(h.workflow.BulkApprove(ctx, ids, req.Notes)))
}

// HandleBulkReject rejects a batch with a shared reason.
func (h *Handler) HandleBulkReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BulkRejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(h.workflow.BulkReject(ctx, ids, req.Reason, req.Notes)))
}

// HandleAuditTrail returns a registration's audit entries, oldest first.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	trail, err := h.workflow.AuditTrail(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trail)
}

// HandleDashboardCounts returns the admin dashboard aggregates.
func (h *Handler) HandleDashboardCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.workflow.DashboardCounts(r.Context())
	if err != nil {
		h.logError(r.Context(), "dashboard counts failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.RegistrationID, bool) {
	id, err := domain.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "registration id is not a valid uuid"))
		return domain.RegistrationID{}, false
	}
	return id, true
}

func parseIDs(raw []string) ([]domain.RegistrationID, error) {
	ids := make([]domain.RegistrationID, 0, len(raw))
	for _, r := range raw {
		id, err := domain.ParseRegistrationID(r)
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "registration id %q is not a valid uuid", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest,
		dErrors.CodeConflict, dErrors.CodeNotFound, dErrors.CodeInvalidState:
		h.logger.InfoContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
	}
}
