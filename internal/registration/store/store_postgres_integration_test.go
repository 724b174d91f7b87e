//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumreg/internal/registration/models"
	"alumreg/pkg/platform/sentinel"
	"alumreg/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() { pg.Terminate(t) })

	ctx := context.Background()
	s := NewPostgresStore(pg.DB)
	require.NoError(t, s.EnsureSchema(ctx))

	now := time.Now().UTC().Truncate(time.Second)

	reg := newTestRegistration(t, "jane@example.com", now)
	reg.StaffNumber = ptr("00ABC12")
	reg.MobileCountryCode = ptr("+254")
	reg.MobileNumber = ptr("712345678")
	reg.LinkedInURL = ptr("https://linkedin.com/in/jane")
	reg.Qualifications = []string{"BSc Computer Science"}
	reg.EngagementPreferences = []string{"Mentoring"}

	t.Run("create and read back", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, reg))

		got, err := s.FindByID(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.Email, got.Email)
		assert.Equal(t, reg.RegistrationNumber, got.RegistrationNumber)
		assert.Equal(t, models.StatusPending, got.Status)
		require.NotNil(t, got.StaffNumber)
		assert.Equal(t, "00ABC12", *got.StaffNumber)
		assert.Equal(t, []string{"BSc Computer Science"}, got.Qualifications)
	})

	t.Run("unique indexes map to duplicate errors", func(t *testing.T) {
		dupEmail := newTestRegistration(t, "JANE@example.com", now)
		var dup *DuplicateError
		require.ErrorAs(t, s.Create(ctx, dupEmail), &dup)
		assert.Equal(t, DuplicateEmail, dup.Field)

		dupStaff := newTestRegistration(t, "other@example.com", now)
		dupStaff.StaffNumber = ptr("00ABC12")
		require.ErrorAs(t, s.Create(ctx, dupStaff), &dup)
		assert.Equal(t, DuplicateStaffNumber, dup.Field)

		dupMobile := newTestRegistration(t, "third@example.com", now)
		dupMobile.MobileCountryCode = ptr("+254")
		dupMobile.MobileNumber = ptr("712345678")
		require.ErrorAs(t, s.Create(ctx, dupMobile), &dup)
		assert.Equal(t, DuplicateMobile, dup.Field)
	})

	t.Run("null columns are exempt from uniqueness", func(t *testing.T) {
		a := newTestRegistration(t, "noslots1@example.com", now)
		b := newTestRegistration(t, "noslots2@example.com", now)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Create(ctx, b))
	})

	t.Run("update round trips review state", func(t *testing.T) {
		reg.FlagForReview("no employment record found", now)
		require.NoError(t, s.Update(ctx, reg))

		got, err := s.FindByID(ctx, reg.ID)
		require.NoError(t, err)
		assert.True(t, got.RequiresManualReview)
		assert.Equal(t, "no employment record found", got.ManualReviewReason)
	})

	t.Run("update unknown id", func(t *testing.T) {
		ghost := newTestRegistration(t, "ghost@example.com", now)
		assert.ErrorIs(t, s.Update(ctx, ghost), sentinel.ErrNotFound)
	})

	t.Run("exists by field", func(t *testing.T) {
		ok, err := s.ExistsByField(ctx, DuplicateEmail, "jane@EXAMPLE.com")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ExistsByField(ctx, DuplicateMobile, "+255", "712345678")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("count by year", func(t *testing.T) {
		n, err := s.CountByYear(ctx, now.Year())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 3)
	})

	t.Run("list with status filter", func(t *testing.T) {
		regs, total, err := s.List(ctx, ListFilter{Status: string(models.StatusPending)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, 3)
		assert.NotEmpty(t, regs)
	})

	t.Run("dashboard counts", func(t *testing.T) {
		c, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Total, 3)
		assert.GreaterOrEqual(t, c.PendingReview, 1)
	})
}
