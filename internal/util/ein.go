package util

import "strings"

// CanonicalEIN strips separator punctuation from an EIN so that
// "34-0714585" and "340714585" compare equal. It does not validate the
// result; use IsValidEIN for that.
func CanonicalEIN(ein string) string {
	var b strings.Builder
	b.Grow(len(ein))
	for i := 0; i < len(ein); i++ {
		switch ein[i] {
		case '-', ' ', '.', '/':
			continue
		}
		b.WriteByte(ein[i])
	}
	return b.String()
}

// IsValidEIN reports whether the canonicalized form of ein is a
// nine-digit number.
func IsValidEIN(ein string) bool {
	clean := CanonicalEIN(ein)
	if len(clean) != 9 {
		return false
	}
	for i := 0; i < len(clean); i++ {
		if clean[i] < '0' || clean[i] > '9' {
			return false
		}
	}
	return true
}
