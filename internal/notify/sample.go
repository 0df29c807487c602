package notify

import (
	"context"
	"strings"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/settings"
)

// Sample email kinds accepted by SendSample.
const (
	SampleWelcome         = "welcome"
	SamplePaymentReminder = "payment_reminder"
	SampleBirthday        = "birthday"
)

// SendSample renders one member template with placeholder data and sends it
// to the given address. The result is the send outcome.
func (m *Mailer) SendSample(ctx context.Context, kind, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" || kind == "" {
		return "", apperr.Validation("type and to are required.")
	}

	now := time.Now().In(m.loc)
	r := Recipient{Name: "Test Member", Email: to, Phone: "+94 77 000 1234"}

	var (
		out Outcome
		err error
	)
	switch kind {
	case SampleWelcome:
		out, err = m.SendWelcome(ctx, Welcome{Recipient: r, DueDate: now.AddDate(0, 0, 30)})
	case SamplePaymentReminder:
		amount, aerr := settings.Decimal(ctx, m.settings, settings.MonthlyPackageAmount)
		if aerr != nil {
			return "", aerr
		}
		out, err = m.SendPaymentDueReminder(ctx, PaymentDue{Recipient: r, DueDate: now.AddDate(0, 0, 3), Amount: amount})
	case SampleBirthday:
		out, err = m.SendBirthdayWish(ctx, r)
	default:
		return "", apperr.Validation("Invalid type %q. Use welcome, payment_reminder, or birthday.", kind)
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}
