package utils

import (
	"strings"
)

// IsValidNIN reports whether s is a well-formed National Identification
// Number: exactly 11 digits.
func IsValidNIN(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidPIN reports whether s is a well-formed Quick PIN: exactly 4 digits.
func IsValidPIN(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeLicensePlate uppercases a plate and strips separator characters
// (spaces, hyphens, dots). Anything else is left in place so that genuinely
// malformed input still fails validation. Idempotent.
func NormalizeLicensePlate(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '-', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPlate reports whether a normalized plate is 3-12 alphanumeric
// characters.
func IsValidPlate(s string) bool {
	if len(s) < 3 || len(s) > 12 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
