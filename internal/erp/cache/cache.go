// Package cache holds a point-in-time, in-memory copy of the employer HR
// roster so the validation hot path never waits on the HR system.
//
// The snapshot is an immutable map swapped by reference on refresh: readers
// observe either the old or the new roster, never a partial one. Concurrent
// Refresh calls collapse to a single in-flight fetch via singleflight.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"alumreg/internal/erp"
	"alumreg/internal/erp/client"
	erpmetrics "alumreg/internal/erp/metrics"
	"alumreg/pkg/domain"
)

// snapshot is one immutable generation of the roster.
type snapshot struct {
	byNationalID map[string]erp.EmployeeRecord
	refreshedAt  time.Time
}

// EmployeeCache is the only mutable shared in-process state in the service.
type EmployeeCache struct {
	roster   client.RosterClient
	mockMode bool
	logger   *slog.Logger
	metrics  *erpmetrics.Metrics
	group    singleflight.Group

	mu        sync.RWMutex
	snap      *snapshot
	lastError string
}

// Option configures an EmployeeCache.
type Option func(*EmployeeCache)

// WithLogger sets the refresh logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *EmployeeCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches cache metrics.
func WithMetrics(m *erpmetrics.Metrics) Option {
	return func(c *EmployeeCache) {
		c.metrics = m
	}
}

// WithMockMode disables refreshes entirely; Find always misses.
func WithMockMode(enabled bool) Option {
	return func(c *EmployeeCache) {
		c.mockMode = enabled
	}
}

// New constructs an empty EmployeeCache over the given roster client.
func New(roster client.RosterClient, opts ...Option) *EmployeeCache {
	c := &EmployeeCache{
		roster: roster,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Find looks up an employee by national id, case-insensitively. A cold or
// empty cache is simply a miss; Find never errors.
func (c *EmployeeCache) Find(nationalID string) (erp.EmployeeRecord, bool) {
	key := domain.NationalID(nationalID).Normalized()
	if key == "" {
		return erp.EmployeeRecord{}, false
	}

	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap == nil {
		c.recordLookup(false)
		return erp.EmployeeRecord{}, false
	}
	rec, ok := snap.byNationalID[key]
	c.recordLookup(ok)
	return rec, ok
}

// Refresh fetches the full roster and atomically replaces the snapshot.
// Failure keeps the previous good snapshot and latches the error.
// Concurrent callers share one underlying fetch and its result.
func (c *EmployeeCache) Refresh(ctx context.Context) error {
	if c.mockMode {
		return nil
	}

	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *EmployeeCache) refresh(ctx context.Context) error {
	start := time.Now()
	records, err := c.roster.FetchRoster(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastError = err.Error()
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RefreshFailures.Inc()
		}
		c.logger.ErrorContext(ctx, "roster refresh failed, keeping previous snapshot", "error", err)
		return err
	}

	byID := make(map[string]erp.EmployeeRecord, len(records))
	for _, rec := range records {
		byID[domain.NationalID(rec.NationalID).Normalized()] = rec
	}

	next := &snapshot{byNationalID: byID, refreshedAt: time.Now()}

	c.mu.Lock()
	c.snap = next
	c.lastError = ""
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RefreshTotal.Inc()
		c.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
		c.metrics.CachedRecords.Set(float64(len(byID)))
	}
	c.logger.InfoContext(ctx, "roster refreshed",
		"records", len(byID),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Health reports readiness of the roster. Mock mode is always ready. A
// latched refresh error with a prior good snapshot still counts as ready;
// the service degrades to manual review rather than going down.
func (c *EmployeeCache) Health(ctx context.Context) error {
	if c.mockMode {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		if c.lastError != "" {
			return fmt.Errorf("roster never loaded: %s", c.lastError)
		}
		return errors.New("roster not yet loaded")
	}
	return nil
}

// Stats returns a read-only snapshot for observability. Healthy means at
// least one refresh has succeeded and no error is currently latched.
func (c *EmployeeCache) Stats() erp.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := erp.CacheStats{LastError: c.lastError}
	if c.snap != nil {
		stats.LastRefresh = c.snap.refreshedAt
		stats.RecordCount = len(c.snap.byNationalID)
		stats.Healthy = c.lastError == ""
	}
	return stats
}

func (c *EmployeeCache) recordLookup(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.Inc()
	} else {
		c.metrics.CacheMisses.Inc()
	}
}

// Refresher periodically refreshes the cache until ctx is cancelled.
// Refresh errors are logged by the cache and retried on the next tick.
type Refresher struct {
	cache    *EmployeeCache
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher builds the periodic refresher.
func NewRefresher(cache *EmployeeCache, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{cache: cache, interval: interval, logger: logger}
}

// Run refreshes once immediately, then on every tick. Returns when ctx ends.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.cache.Refresh(ctx); err != nil {
		r.logger.ErrorContext(ctx, "initial roster refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.cache.Refresh(ctx); err != nil {
				r.logger.ErrorContext(ctx, "scheduled roster refresh failed", "error", err)
			}
		}
	}
}
