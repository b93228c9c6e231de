// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"fmt"
	"strings"
	"unicode"
)

// Make converts a display name to a URL-safe slug: lowercased, runs of
// non-alphanumeric characters collapsed to single hyphens, no leading or
// trailing hyphen. "Foo Bar" -> "foo-bar".
func Make(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// WithSuffix returns the slug for the given numeric collision suffix.
// Suffix 0 is the bare slug, suffix n > 0 appends "-n".
func WithSuffix(base string, suffix int) string {
	if suffix <= 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, suffix)
}
