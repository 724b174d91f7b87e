// Package client fetches the full employee roster from the HR system over
// HTTP. Every call carries a timeout, a bounded retry count with exponential
// backoff, and a circuit breaker so a struggling HR system degrades the
// refresh path instead of piling up requests.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"alumreg/internal/erp"
	"alumreg/pkg/platform/circuit"
	"alumreg/pkg/platform/sentinel"
)

// RosterClient fetches the complete HR roster in one call.
type RosterClient interface {
	FetchRoster(ctx context.Context) ([]erp.EmployeeRecord, error)
}

// HTTPClient is the production RosterClient.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	breaker     *circuit.Breaker
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithMaxRetries bounds how many attempts a fetch makes.
func WithMaxRetries(n int) Option {
	return func(h *HTTPClient) {
		if n > 0 {
			h.maxRetries = n
		}
	}
}

// WithBackoffBase sets the first retry delay; each retry doubles it.
func WithBackoffBase(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			h.backoffBase = d
		}
	}
}

// WithBreaker installs a shared circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(h *HTTPClient) {
		if b != nil {
			h.breaker = b
		}
	}
}

// WithLogger sets the logger for skipped-record warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(h *HTTPClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSleep overrides the backoff sleeper (tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(h *HTTPClient) {
		if fn != nil {
			h.sleep = fn
		}
	}
}

// New constructs an HTTPClient. requestTimeout applies per attempt.
func New(baseURL, apiKey string, requestTimeout time.Duration, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: requestTimeout},
		maxRetries:  3,
		backoffBase: 500 * time.Millisecond,
		breaker:     circuit.New("erp-roster"),
		logger:      slog.New(slog.DiscardHandler),
		sleep:       waitBackoff,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// rosterRecord is the wire shape of one roster entry. Unknown fields are
// ignored by encoding/json.
type rosterRecord struct {
	NationalID      string `json:"nationalId"`
	StaffID         string `json:"staffId"`
	FullName        string `json:"fullName"`
	Department      string `json:"department"`
	TerminationDate string `json:"terminationDate"`
}

// FetchRoster retrieves and parses the full roster. Individual malformed
// records and records without a national identifier are skipped, not fatal;
// transport failures and non-2xx statuses fail the whole fetch.
func (h *HTTPClient) FetchRoster(ctx context.Context) ([]erp.EmployeeRecord, error) {
	if !h.breaker.Allow() {
		return nil, fmt.Errorf("hr system circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := h.fetchWithRetries(ctx)
	if err != nil {
		h.breaker.RecordFailure()
		return nil, err
	}
	h.breaker.RecordSuccess()

	return h.parseRoster(body)
}

func (h *HTTPClient) fetchWithRetries(ctx context.Context) ([]byte, error) {
	var lastErr error
	backoff := h.backoffBase
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		if attempt > 1 {
			if err := h.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}

		body, err := h.fetchOnce(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		h.logger.WarnContext(ctx, "roster fetch attempt failed",
			"attempt", attempt,
			"max_retries", h.maxRetries,
			"error", err,
		)
	}
	return nil, fmt.Errorf("roster fetch failed after %d attempts: %w", h.maxRetries, lastErr)
}

// waitBackoff sleeps for d or until ctx is cancelled, whichever comes first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (h *HTTPClient) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/employees", nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hr system returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read roster body: %w", err)
	}
	return body, nil
}

func (h *HTTPClient) parseRoster(body []byte) ([]erp.EmployeeRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse roster array: %w", err)
	}

	records := make([]erp.EmployeeRecord, 0, len(raw))
	skipped := 0
	for i, entry := range raw {
		var rec rosterRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			skipped++
			h.logger.Warn("skipping malformed roster record", "index", i, "error", err)
			continue
		}
		if strings.TrimSpace(rec.NationalID) == "" {
			// Roster rows without a national identifier cannot be matched.
			skipped++
			continue
		}
		records = append(records, erp.EmployeeRecord{
			NationalID: strings.TrimSpace(rec.NationalID),
			StaffID:    strings.TrimSpace(rec.StaffID),
			FullName:   strings.TrimSpace(rec.FullName),
			Department: strings.TrimSpace(rec.Department),
			ExitDate:   parseExitDate(rec.TerminationDate),
		})
	}
	if skipped > 0 {
		h.logger.Info("roster parsed with skipped records", "total", len(raw), "skipped", skipped)
	}
	return records, nil
}

func parseExitDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
