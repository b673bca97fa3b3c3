// Package siteid normalizes tenant site identifiers. The same transform is
// applied on every write and every comparison; a join between tables silently
// fails when one side skips it.
package siteid

import "strings"

const (
	// MinLen and MaxLen bound a normalized site id accepted at signup.
	MinLen = 3
	MaxLen = 30
)

// Normalize uppercases raw and strips every character outside [A-Z0-9-].
func Normalize(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(upper))
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Valid reports whether a normalized site id is within length bounds.
func Valid(normalized string) bool {
	return len(normalized) >= MinLen && len(normalized) <= MaxLen
}
