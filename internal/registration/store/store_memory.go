package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"alumreg/internal/registration/models"
	"alumreg/pkg/domain"
	"alumreg/pkg/platform/sentinel"
)

// InMemoryStore keeps registrations in maps guarded by a mutex. It mirrors
// the PostgreSQL store's uniqueness behavior so service tests exercise the
// same error paths.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[domain.RegistrationID]*models.Registration
	clock func() time.Time
}

// NewInMemoryStore constructs an empty in-memory registration store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[domain.RegistrationID]*models.Registration),
		clock: time.Now,
	}
}

// Create persists a new registration, enforcing every uniqueness rule.
func (s *InMemoryStore) Create(ctx context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if field, dup := conflicts(existing, reg); dup {
			return &DuplicateError{Field: field}
		}
	}

	cp := *reg
	s.byID[reg.ID] = &cp
	return nil
}

func conflicts(a, b *models.Registration) (DuplicateField, bool) {
	if strings.EqualFold(a.Email, b.Email) {
		return DuplicateEmail, true
	}
	if a.RegistrationNumber == b.RegistrationNumber {
		return DuplicateNumber, true
	}
	if a.StaffNumber != nil && b.StaffNumber != nil && *a.StaffNumber == *b.StaffNumber {
		return DuplicateStaffNumber, true
	}
	if a.HasMobile() && b.HasMobile() &&
		*a.MobileCountryCode == *b.MobileCountryCode && *a.MobileNumber == *b.MobileNumber {
		return DuplicateMobile, true
	}
	if a.LinkedInURL != nil && b.LinkedInURL != nil && strings.EqualFold(*a.LinkedInURL, *b.LinkedInURL) {
		return DuplicateLinkedIn, true
	}
	return "", false
}

// Update replaces a stored registration.
func (s *InMemoryStore) Update(ctx context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[reg.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *reg
	s.byID[reg.ID] = &cp
	return nil
}

// FindByID retrieves one registration.
func (s *InMemoryStore) FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

// FindByEmail retrieves one registration by email, case-insensitively.
func (s *InMemoryStore) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.byID {
		if strings.EqualFold(reg.Email, email) {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ExistsByField reports whether any registration already claims the value.
func (s *InMemoryStore) ExistsByField(ctx context.Context, field DuplicateField, values ...string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.byID {
		switch field {
		case DuplicateEmail:
			if len(values) == 1 && strings.EqualFold(reg.Email, values[0]) {
				return true, nil
			}
		case DuplicateStaffNumber:
			if len(values) == 1 && reg.StaffNumber != nil && *reg.StaffNumber == values[0] {
				return true, nil
			}
		case DuplicateMobile:
			if len(values) == 2 && reg.HasMobile() &&
				*reg.MobileCountryCode == values[0] && *reg.MobileNumber == values[1] {
				return true, nil
			}
		case DuplicateLinkedIn:
			if len(values) == 1 && reg.LinkedInURL != nil && strings.EqualFold(*reg.LinkedInURL, values[0]) {
				return true, nil
			}
		}
	}
	return false, nil
}

// CountByYear counts registrations created in the given year.
func (s *InMemoryStore) CountByYear(ctx context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, reg := range s.byID {
		if reg.CreatedAt.Year() == year {
			n++
		}
	}
	return n, nil
}

// List returns a filtered, paged slice plus the total match count.
func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Registration, int, error) {
	filter.Normalize()

	s.mu.RLock()
	matched := make([]*models.Registration, 0, len(s.byID))
	for _, reg := range s.byID {
		if matches(reg, filter) {
			cp := *reg
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*models.Registration{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matches(reg *models.Registration, f ListFilter) bool {
	if f.Status != "" && string(reg.Status) != f.Status {
		return false
	}
	if f.RequiresReview != nil && reg.RequiresManualReview != *f.RequiresReview {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(reg.FullName), q) &&
			!strings.Contains(strings.ToLower(reg.Email), q) &&
			!strings.Contains(strings.ToLower(reg.RegistrationNumber), q) {
			return false
		}
	}
	return true
}

// Counts computes the dashboard aggregates.
func (s *InMemoryStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	// The UTC day boundary matches the Postgres store's Today count.
	now := s.clock().In(time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, reg := range s.byID {
		c.Total++
		switch reg.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusApproved:
			c.Approved++
		case models.StatusActive:
			c.Active++
		case models.StatusRejected:
			c.Rejected++
		}
		if reg.RequiresManualReview {
			c.PendingReview++
		}
		if !reg.CreatedAt.Before(today) {
			c.Today++
		}
	}
	return c, nil
}
