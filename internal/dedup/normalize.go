package dedup

import "strings"

// Normalize maps a name to its exact-duplicate key: lower-cased, trimmed,
// inner whitespace collapsed.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
