package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization. The normalized
// form backs the uniqueness constraint; the original casing is preserved on
// the record for display.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimmed(s string) string { return strings.TrimSpace(s) }
