package membership

import (
	"time"

	"gymflow/internal/calendar"
)

// BuildInitialDueDate returns the first due date for a member registering on
// now: dueDay of this month while today is on or before it, else dueDay of
// next month.
func BuildInitialDueDate(now time.Time, dueDay int, loc *time.Location) time.Time {
	today := calendar.DateOf(now, loc)
	if today.Day() <= dueDay {
		return calendar.Date(today.Year(), today.Month(), dueDay, loc)
	}
	return calendar.Date(today.Year(), today.Month()+1, dueDay, loc)
}

// NextDueDate returns dueDay of the month after the anchor's month. It does
// not depend on today, so paying late or early for a period yields the same
// date.
func NextDueDate(anchor time.Time, dueDay int) time.Time {
	return calendar.Date(anchor.Year(), anchor.Month()+1, dueDay, anchor.Location())
}

// PeriodAnchor is the calendar date standing for a billing period.
func PeriodAnchor(year, month, dueDay int, loc *time.Location) time.Time {
	return calendar.Date(year, time.Month(month), dueDay, loc)
}
