// Package validator answers whether a submitted national id and name belong
// to a legitimate current or former employee.
package validator

import (
	"context"
	"log/slog"
	"strings"

	"alumreg/internal/erp"
	erpmetrics "alumreg/internal/erp/metrics"
	"alumreg/pkg/domain"
)

// MatchThreshold is the minimum name similarity treated as a confident match.
const MatchThreshold = 80

// EmployeeFinder is the cache-side lookup the validator consults. Health
// reports whether the roster behind Find has ever loaded, so a miss against
// an empty cache can be told apart from a genuinely absent record.
type EmployeeFinder interface {
	Find(nationalID string) (erp.EmployeeRecord, bool)
	Health(ctx context.Context) error
}

// Service cross-checks submissions against the employee cache, or against a
// static mock roster when mock mode is enabled.
type Service struct {
	cache         EmployeeFinder
	mockMode      bool
	mockEmployees []erp.EmployeeRecord
	logger        *slog.Logger
	metrics       *erpmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the validation logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches validation metrics.
func WithMetrics(m *erpmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMockEmployees enables mock mode with the given static roster.
func WithMockEmployees(employees []erp.EmployeeRecord) Option {
	return func(s *Service) {
		s.mockMode = true
		s.mockEmployees = employees
	}
}

// New constructs a validation service over the employee cache.
func New(cache EmployeeFinder, opts ...Option) *Service {
	s := &Service{
		cache:  cache,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks nationalID and fullName against the roster. It always
// returns a structured result; whether an absent or low-confidence record
// triggers manual review is the workflow's policy, not decided here.
func (s *Service) Validate(ctx context.Context, nationalID, fullName string) erp.ValidationResult {
	if s.mockMode {
		return s.validateMock(nationalID, fullName)
	}

	rec, found := s.cache.Find(nationalID)
	if !found {
		if err := s.cache.Health(ctx); err != nil {
			s.recordOutcome("unavailable")
			s.logger.WarnContext(ctx, "erp roster unavailable", "error", err)
			return erp.ValidationResult{ErrMessage: err.Error()}
		}
		s.recordOutcome("not_found")
		return erp.ValidationResult{}
	}

	score := NameSimilarity(fullName, rec.FullName)
	result := erp.ValidationResult{
		IsValid:        score >= MatchThreshold,
		Found:          true,
		StaffName:      rec.FullName,
		StaffID:        rec.StaffID,
		Department:     rec.Department,
		ExitDate:       rec.ExitDate,
		NameSimilarity: score,
	}
	if result.IsValid {
		s.recordOutcome("match")
	} else {
		s.recordOutcome("name_mismatch")
		s.logger.InfoContext(ctx, "erp name mismatch",
			"similarity", score,
			"threshold", MatchThreshold,
		)
	}
	return result
}

func (s *Service) validateMock(nationalID, fullName string) erp.ValidationResult {
	key := domain.NationalID(nationalID).Normalized()
	for _, emp := range s.mockEmployees {
		if domain.NationalID(emp.NationalID).Normalized() != key {
			continue
		}
		score := NameSimilarity(fullName, emp.FullName)
		s.recordOutcome("mock")
		return erp.ValidationResult{
			IsValid:        score >= MatchThreshold,
			Found:          true,
			StaffName:      emp.FullName,
			StaffID:        emp.StaffID,
			Department:     emp.Department,
			ExitDate:       emp.ExitDate,
			NameSimilarity: score,
			IsMockData:     true,
		}
	}
	s.recordOutcome("mock_not_found")
	return erp.ValidationResult{IsMockData: true}
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.Validations.WithLabelValues(outcome).Inc()
	}
}

// NameSimilarity scores two names on a 0-100 scale. Comparison is
// case-insensitive and whitespace-normalized: identical names after
// normalization score 100, the same tokens in a different order score 95,
// and partial overlaps score by shared-token ratio.
func NameSimilarity(a, b string) int {
	ta := nameTokens(a)
	tb := nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	if strings.Join(ta, " ") == strings.Join(tb, " ") {
		return 100
	}

	counts := make(map[string]int, len(ta))
	for _, tok := range ta {
		counts[tok]++
	}
	common := 0
	for _, tok := range tb {
		if counts[tok] > 0 {
			counts[tok]--
			common++
		}
	}
	if common == len(ta) && common == len(tb) {
		// Same tokens, different order ("Doe Jane" vs "Jane Doe").
		return 95
	}
	return common * 200 / (len(ta) + len(tb))
}

func nameTokens(s string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(s)))
}
