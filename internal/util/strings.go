// Package util provides small helpers shared across the storage backends.
package util

// SafeTruncate safely truncates a string to maxLen characters without
// panicking. Used when logging sensitive values like tokens, where only a
// short prefix should ever be shown.
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
