package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Fold returns a case-folded form of value for case-insensitive comparisons.
// A new Caser is built per call since casers keep internal state.
func Fold(value string) string {
	return cases.Fold().String(value)
}

// ContainsFold reports whether term occurs in value ignoring case.
func ContainsFold(value, term string) bool {
	return strings.Contains(Fold(value), Fold(term))
}

// Truncate shortens value to at most limit runes, marking the cut with "...".
func Truncate(value string, limit int) string {
	if limit <= 3 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-3]) + "..."
}

// NormalizeStringMap trims keys and values, removing entries with empty keys.
func NormalizeStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		result[trimmedKey] = strings.TrimSpace(value)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
