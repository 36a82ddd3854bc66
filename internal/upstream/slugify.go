package upstream

import (
	"errors"
	"strings"
)

// ErrInvalidHeader is returned when the configured bearer token cannot
// be safely placed in an HTTP header.
var ErrInvalidHeader = errors.New("upstream: invalid authorization header material")

// Slugify maps s to lowercase ASCII alphanumerics, collapsing every run
// of other characters to a single underscore and trimming leading and
// trailing underscores.
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
