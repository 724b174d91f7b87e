// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeAndTrimFold removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Duplicates are matched
// case-insensitively, keeping the first spelling seen. Order is preserved.
func DedupeAndTrimFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
