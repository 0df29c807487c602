// Package settings exposes the gym's runtime key/value settings.
package settings

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Setting keys.
const (
	AutoExpireEnabled    = "AUTO_EXPIRE_ENABLED"
	MonthlyPackageAmount = "MONTHLY_PACKAGE_AMOUNT"
	DueDay               = "DUE_DAY"
	ReminderDaysBefore   = "REMINDER_DAYS_BEFORE"
	GymName              = "GYM_NAME"
)

// Defaults apply when a key is absent or holds an unusable value.
var Defaults = map[string]string{
	AutoExpireEnabled:    "false",
	MonthlyPackageAmount: "3000",
	DueDay:               "10",
	ReminderDaysBefore:   "3",
	GymName:              "Focus Fitness",
}

// Allowed reports whether key may be written.
func Allowed(key string) bool {
	_, ok := Defaults[key]
	return ok
}

// Setting is one stored key/value pair.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Provider reads settings. Every read goes to the backing store, so changes
// made through the admin endpoints apply on the next call.
type Provider interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Static is a fixed in-memory Provider.
type Static map[string]string

func (s Static) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// String returns the value of key or its default.
func String(ctx context.Context, p Provider, key string) (string, error) {
	v, ok, err := p.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return Defaults[key], nil
	}
	return v, nil
}

// Bool is true only for the exact value "true".
func Bool(ctx context.Context, p Provider, key string) (bool, error) {
	v, err := String(ctx, p, key)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Int parses key as an integer, falling back to the default when the stored
// value is not a number.
func Int(ctx context.Context, p Provider, key string) (int, error) {
	v, err := String(ctx, p, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(Defaults[key])
	}
	return n, nil
}

// Decimal parses key as a decimal, falling back to the default.
func Decimal(ctx context.Context, p Provider, key string) (decimal.Decimal, error) {
	v, err := String(ctx, p, key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(Defaults[key])
	}
	return d, nil
}

// DueDayOf returns DUE_DAY limited to 1..31.
func DueDayOf(ctx context.Context, p Provider) (int, error) {
	day, err := Int(ctx, p, DueDay)
	if err != nil {
		return 0, err
	}
	switch {
	case day < 1:
		return 1, nil
	case day > 31:
		return 31, nil
	}
	return day, nil
}

// ReminderDaysOf returns REMINDER_DAYS_BEFORE, never negative.
func ReminderDaysOf(ctx context.Context, p Provider) (int, error) {
	days, err := Int(ctx, p, ReminderDaysBefore)
	if err != nil {
		return 0, err
	}
	if days < 0 {
		return 0, nil
	}
	return days, nil
}
