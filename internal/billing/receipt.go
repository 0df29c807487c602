package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultReceiptPrefix is used when no prefix is configured.
const DefaultReceiptPrefix = "FF"

// PeriodPrefix returns the receipt prefix of a billing period, PREFIX-YYYYMM.
func PeriodPrefix(prefix string, month, year int) string {
	return fmt.Sprintf("%s-%04d%02d", prefix, year, month)
}

// NextReceiptNumber returns the receipt following latest within
// periodPrefix. An empty latest starts the sequence at 0001. Suffixes keep
// growing past 9999.
func NextReceiptNumber(periodPrefix, latest string) (string, error) {
	seq := 1
	if latest != "" {
		suffix, ok := strings.CutPrefix(latest, periodPrefix+"-")
		if !ok {
			return "", fmt.Errorf("receipt %q does not belong to %q", latest, periodPrefix)
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			return "", fmt.Errorf("malformed receipt number %q", latest)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s-%04d", periodPrefix, seq), nil
}

// receiptLess orders receipts of one prefix by length, then lexically, which
// matches numeric order of their suffixes.
func receiptLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
