// Package strings holds small string-slice helpers shared by the handlers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops empties, and removes duplicates
// while preserving first-seen order. Batch dispatch uses it so an ID pasted
// twice into the admin console is still dispatched once.
func DedupeAndTrim(values []string) []string {
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
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
