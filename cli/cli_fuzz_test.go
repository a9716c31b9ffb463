package cli

import (
	"testing"
)

func FuzzParseDate(f *testing.F) {
	// Seed with valid formats
	f.Add("2025-01-02T03:04:05Z")
	f.Add("2025-01-02T03:04:05+02:00")
	// Invalid formats
	f.Add("")
	f.Add("not-a-date")
	f.Add("2025-01-02")
	// Edge cases
	f.Add("0000-00-00T00:00:00Z")
	f.Add("9999-12-31T23:59:59Z")

	f.Fuzz(func(t *testing.T, s string) {
		// Should not panic
		parseDate(s)
	})
}
