package service

import (
	"context"
	"log/slog"
	"time"

	"alumreg/internal/audit/models"
	"alumreg/pkg/domain"
)

// Store is the persistence surface the audit service needs.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	ListByRegistration(ctx context.Context, id domain.RegistrationID) ([]*models.Entry, error)
}

// Service records and reads the registration audit trail. Recording never
// fails a caller's operation; a write error is logged and swallowed so a
// broken audit sink cannot block approvals.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs an audit service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record describes one event to append.
type Record struct {
	RegistrationID domain.RegistrationID
	Action         models.Action
	Actor          string
	PrevStatus     string
	NewStatus      string
	Reason         string
	Notes          string
}

// Append writes one audit entry.
func (s *Service) Append(ctx context.Context, rec Record, now time.Time) {
	entry := models.NewEntry(rec.RegistrationID, rec.Action, rec.Actor, now)
	entry.PrevStatus = rec.PrevStatus
	entry.NewStatus = rec.NewStatus
	entry.Reason = rec.Reason
	entry.Notes = rec.Notes

	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to append audit entry",
			"registration_id", rec.RegistrationID.String(),
			"action", string(rec.Action),
			"error", err)
	}
}

// Trail returns a registration's audit entries, oldest first.
func (s *Service) Trail(ctx context.Context, id domain.RegistrationID) ([]*models.Entry, error) {
	return s.store.ListByRegistration(ctx, id)
}
