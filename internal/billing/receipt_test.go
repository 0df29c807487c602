package billing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPeriodPrefix(t *testing.T) {
	assert.Equal(t, "FF-202503", PeriodPrefix("FF", 3, 2025))
	assert.Equal(t, "GYM-210012", PeriodPrefix("GYM", 12, 2100))
}

func TestNextReceiptNumber(t *testing.T) {
	tests := []struct {
		name   string
		latest string
		want   string
	}{
		{"first of period", "", "FF-202503-0001"},
		{"increments", "FF-202503-0041", "FF-202503-0042"},
		{"past four digits", "FF-202503-9999", "FF-202503-10000"},
		{"keeps growing", "FF-202503-10000", "FF-202503-10001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextReceiptNumber("FF-202503", tt.latest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NextReceiptNumber("FF-202503", "FF-202504-0001")
	assert.Error(t, err)
	_, err = NextReceiptNumber("FF-202503", "FF-202503-abcd")
	assert.Error(t, err)
}

func TestReceiptSequenceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		month := rapid.IntRange(1, 12).Draw(t, "month")
		year := rapid.IntRange(2000, 2100).Draw(t, "year")
		start := rapid.IntRange(0, 20000).Draw(t, "start")
		steps := rapid.IntRange(1, 50).Draw(t, "steps")

		prefix := PeriodPrefix("FF", month, year)
		latest := ""
		if start > 0 {
			latest = fmt.Sprintf("%s-%04d", prefix, start)
		}

		for i := 1; i <= steps; i++ {
			next, err := NextReceiptNumber(prefix, latest)
			if err != nil {
				t.Fatalf("next after %q: %v", latest, err)
			}
			if want := fmt.Sprintf("%s-%04d", prefix, start+i); next != want {
				t.Fatalf("after %q got %q, want %q", latest, next, want)
			}
			if latest != "" && !receiptLess(latest, next) {
				t.Fatalf("%q does not order after %q", next, latest)
			}
			latest = next
		}
	})
}
