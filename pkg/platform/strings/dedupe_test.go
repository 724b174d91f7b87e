package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimFold(t *testing.T) {
	assert.Equal(t,
		[]string{"BSc Computer Science", "MBA"},
		DedupeAndTrimFold([]string{"  BSc Computer Science ", "MBA", "BSc Computer Science", "", "  "}),
	)
}

func TestDedupeAndTrimFold_CaseInsensitive(t *testing.T) {
	assert.Equal(t,
		[]string{"Mentoring", "Events"},
		DedupeAndTrimFold([]string{" Mentoring ", "Events", "mentoring"}),
	)
}

func TestDedupeAndTrimFold_Empty(t *testing.T) {
	assert.Empty(t, DedupeAndTrimFold(nil))
	assert.Empty(t, DedupeAndTrimFold([]string{}))
}
