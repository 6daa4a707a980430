// Package identity canonicalizes the person identifier (DNI) used as the
// lookup key across the whole system.
package identity

import (
	"strings"
)

// Normalize strips separators from a raw DNI and returns its canonical
// 8-digit form. The second return is false when the input cannot be a DNI.
// Pure function, no side effects.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ' ' || r == '-':
			// common separators people type into the form
		default:
			return "", false
		}
	}

	digits := b.String()
	if len(digits) < 7 || len(digits) > 8 {
		return "", false
	}
	if len(digits) == 7 {
		digits = "0" + digits
	}
	return digits, true
}
