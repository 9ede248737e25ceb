package util

import (
	"testing"
)

func TestCanonicalEIN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"WithDash", "34-0714585", "340714585"},
		{"AlreadyClean", "340714585", "340714585"},
		{"WithSpaces", "34 0714585", "340714585"},
		{"WithDots", "34.0714585", "340714585"},
		{"MixedSeparators", "34-07 14.585", "340714585"},
		{"Empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CanonicalEIN(tc.in)
			if got != tc.want {
				t.Fatalf("CanonicalEIN(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsValidEIN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"NineDigits", "340714585", true},
		{"WithDash", "34-0714585", true},
		{"TooShort", "12345678", false},
		{"TooLong", "1234567890", false},
		{"Letters", "34071458X", false},
		{"Empty", "", false},
		{"OnlySeparators", "---", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidEIN(tc.in)
			if got != tc.want {
				t.Fatalf("IsValidEIN(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
