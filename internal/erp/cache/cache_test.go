package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumreg/internal/erp"
)

type fakeRoster struct {
	mu      sync.Mutex
	records []erp.EmployeeRecord
	err     error
	fetches atomic.Int32
	block   chan struct{}
}

func (f *fakeRoster) FetchRoster(ctx context.Context) ([]erp.EmployeeRecord, error) {
	f.fetches.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeRoster) set(records []erp.EmployeeRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

func TestEmployeeCache_Find(t *testing.T) {
	ctx := context.Background()
	roster := &fakeRoster{records: []erp.EmployeeRecord{
		{NationalID: "ab123", FullName: "Jane Wanjiku", StaffID: "E-1001"},
	}}
	cache := New(roster)

	t.Run("cold cache misses without error", func(t *testing.T) {
		_, found := cache.Find("AB123")
		assert.False(t, found)
	})

	require.NoError(t, cache.Refresh(ctx))

	t.Run("lookup is case insensitive", func(t *testing.T) {
		rec, found := cache.Find("  AB123  ")
		require.True(t, found)
		assert.Equal(t, "Jane Wanjiku", rec.FullName)
	})

	t.Run("empty id misses", func(t *testing.T) {
		_, found := cache.Find("   ")
		assert.False(t, found)
	})
}

func TestEmployeeCache_RefreshFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	roster := &fakeRoster{records: []erp.EmployeeRecord{{NationalID: "AB123", FullName: "Jane Wanjiku"}}}
	cache := New(roster)
	require.NoError(t, cache.Refresh(ctx))

	roster.set(nil, fmt.Errorf("erp down"))
	require.Error(t, cache.Refresh(ctx))

	_, found := cache.Find("AB123")
	assert.True(t, found, "previous snapshot must survive a failed refresh")

	stats := cache.Stats()
	assert.False(t, stats.Healthy)
	assert.Equal(t, "erp down", stats.LastError)
	assert.Equal(t, 1, stats.RecordCount)

	t.Run("next success clears the error", func(t *testing.T) {
		roster.set([]erp.EmployeeRecord{{NationalID: "AB123"}, {NationalID: "CD456"}}, nil)
		require.NoError(t, cache.Refresh(ctx))

		stats := cache.Stats()
		assert.True(t, stats.Healthy)
		assert.Empty(t, stats.LastError)
		assert.Equal(t, 2, stats.RecordCount)
	})
}

func TestEmployeeCache_ConcurrentRefreshCollapses(t *testing.T) {
	ctx := context.Background()
	roster := &fakeRoster{
		records: []erp.EmployeeRecord{{NationalID: "AB123"}},
		block:   make(chan struct{}),
	}
	cache := New(roster)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cache.Refresh(ctx)
		}()
	}
	// Let every goroutine reach the shared flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(roster.block)
	wg.Wait()

	assert.Equal(t, int32(1), roster.fetches.Load(),
		"concurrent refreshes must share an in-flight fetch")
}

func TestEmployeeCache_MockMode(t *testing.T) {
	ctx := context.Background()
	roster := &fakeRoster{err: fmt.Errorf("must never be called")}
	cache := New(roster, WithMockMode(true))

	require.NoError(t, cache.Refresh(ctx))
	assert.Equal(t, int32(0), roster.fetches.Load())

	_, found := cache.Find("AB123")
	assert.False(t, found)
}

func TestEmployeeCache_StatsCold(t *testing.T) {
	cache := New(&fakeRoster{})
	stats := cache.Stats()
	assert.False(t, stats.Healthy)
	assert.Zero(t, stats.RecordCount)
	assert.True(t, stats.LastRefresh.IsZero())
}

func TestEmployeeCache_Health(t *testing.T) {
	ctx := context.Background()

	t.Run("mock mode is always ready", func(t *testing.T) {
		cache := New(&fakeRoster{}, WithMockMode(true))
		assert.NoError(t, cache.Health(ctx))
	})

	t.Run("cold cache is not ready", func(t *testing.T) {
		cache := New(&fakeRoster{})
		assert.Error(t, cache.Health(ctx))
	})

	t.Run("stale snapshot with a latched error stays ready", func(t *testing.T) {
		roster := &fakeRoster{records: []erp.EmployeeRecord{{NationalID: "AB123"}}}
		cache := New(roster)
		require.NoError(t, cache.Refresh(ctx))

		roster.set(nil, fmt.Errorf("erp down"))
		require.Error(t, cache.Refresh(ctx))

		assert.NoError(t, cache.Health(ctx))
	})
}
