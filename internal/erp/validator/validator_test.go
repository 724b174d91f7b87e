package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumreg/internal/erp"
)

type mapFinder map[string]erp.EmployeeRecord

func (m mapFinder) Find(nationalID string) (erp.EmployeeRecord, bool) {
	rec, ok := m[nationalID]
	return rec, ok
}

func (m mapFinder) Health(context.Context) error { return nil }

// coldFinder stands in for a cache whose roster never loaded.
type coldFinder struct{ err error }

func (c coldFinder) Find(string) (erp.EmployeeRecord, bool) { return erp.EmployeeRecord{}, false }

func (c coldFinder) Health(context.Context) error { return c.err }

func TestNameSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "Jane Wanjiku", "Jane Wanjiku", 100},
		{"case and whitespace only", "  jane   WANJIKU ", "Jane Wanjiku", 100},
		{"token order", "Wanjiku Jane", "Jane Wanjiku", 95},
		{"no overlap", "Alice Achieng", "John Otieno", 0},
		{"both empty", "", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NameSimilarity(tc.a, tc.b))
		})
	}

	t.Run("partial overlap scores between 0 and 100", func(t *testing.T) {
		score := NameSimilarity("Jane Wanjiku Kamau", "Jane Wanjiku")
		assert.Greater(t, score, 0)
		assert.Less(t, score, 100)
	})

	t.Run("symmetry", func(t *testing.T) {
		assert.Equal(t,
			NameSimilarity("Jane Wanjiku", "Wanjiku Jane Kamau"),
			NameSimilarity("Wanjiku Jane Kamau", "Jane Wanjiku"))
	})
}

func TestService_Validate(t *testing.T) {
	ctx := context.Background()
	exit := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	finder := mapFinder{
		"AB123": {NationalID: "AB123", StaffID: "E-1001", FullName: "Jane Wanjiku", Department: "Finance", ExitDate: &exit},
	}

	t.Run("confident match", func(t *testing.T) {
		svc := New(finder)
		result := svc.Validate(ctx, "AB123", "jane wanjiku")
		assert.True(t, result.IsValid)
		assert.True(t, result.Found)
		assert.Equal(t, 100, result.NameSimilarity)
		assert.Equal(t, "Finance", result.Department)
		require.NotNil(t, result.ExitDate)
	})

	t.Run("found but name too different", func(t *testing.T) {
		svc := New(finder)
		result := svc.Validate(ctx, "AB123", "Somebody Completely Different")
		assert.True(t, result.Found)
		assert.False(t, result.IsValid)
		assert.Less(t, result.NameSimilarity, MatchThreshold)
	})

	t.Run("not found", func(t *testing.T) {
		svc := New(finder)
		result := svc.Validate(ctx, "ZZ999", "Jane Wanjiku")
		assert.False(t, result.Found)
		assert.False(t, result.IsValid)
		assert.Empty(t, result.ErrMessage)
	})

	t.Run("roster never loaded reports unavailable, not missing", func(t *testing.T) {
		svc := New(coldFinder{err: errors.New("roster not yet loaded")})
		result := svc.Validate(ctx, "AB123", "Jane Wanjiku")
		assert.False(t, result.Found)
		assert.False(t, result.IsValid)
		assert.Contains(t, result.ErrMessage, "roster not yet loaded")
	})

	t.Run("mock mode matches the static roster", func(t *testing.T) {
		svc := New(nil, WithMockEmployees([]erp.EmployeeRecord{
			{NationalID: "ab123", FullName: "Jane Wanjiku", StaffID: "E-1001"},
		}))
		result := svc.Validate(ctx, " AB123 ", "Jane Wanjiku")
		assert.True(t, result.IsValid)
		assert.True(t, result.IsMockData)
	})

	t.Run("mock mode miss", func(t *testing.T) {
		svc := New(nil, WithMockEmployees(nil))
		result := svc.Validate(ctx, "AB123", "Jane Wanjiku")
		assert.False(t, result.Found)
		assert.True(t, result.IsMockData)
	})
}
