// Package utils holds small helpers shared across packages.
package utils

import "strings"

// SplitList splits a comma-separated value (a query parameter, an env var) into trimmed,
// non-empty items. Returns nil when nothing is left.
func SplitList(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
