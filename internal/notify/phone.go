package notify

import "strings"

// NormalizePhone strips whitespace and returns an E.164-style number. Numbers
// already carrying a leading + are kept; anything else is treated as a local
// number in countryCode with its trunk 0 removed.
func NormalizePhone(phone, countryCode string) string {
	phone = strings.Join(strings.Fields(phone), "")
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + strings.TrimPrefix(countryCode, "+") + strings.TrimPrefix(phone, "0")
}
