package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gymflow/internal/settings"
)

// TextTransport delivers a plain text WhatsApp message to an E.164 number.
type TextTransport interface {
	Configured() bool
	SendText(ctx context.Context, phone, body string) error
}

// WhatsApp formats reminder messages and hands them to a transport. An
// unconfigured transport yields SKIPPED and only logs the message.
type WhatsApp struct {
	transport   TextTransport
	settings    settings.Provider
	countryCode string
	loc         *time.Location
	logger      *zap.Logger
}

func NewWhatsApp(transport TextTransport, provider settings.Provider, countryCode string, loc *time.Location, logger *zap.Logger) *WhatsApp {
	return &WhatsApp{
		transport:   transport,
		settings:    provider,
		countryCode: countryCode,
		loc:         loc,
		logger:      logger,
	}
}

func (w *WhatsApp) Channel() Channel { return ChannelWhatsApp }

func (w *WhatsApp) SendPaymentDueReminder(ctx context.Context, msg PaymentDue) (Outcome, error) {
	gymName, err := settings.String(ctx, w.settings, settings.GymName)
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("Hi %s 👋\n\nThis is a reminder that your %s membership fee of *LKR %s* is due on *%s*.\n\n"+
		"Please make your cash payment at the gym before the due date.\n\nThank you! 💪\n- %s Team",
		msg.Name, gymName, msg.Amount.StringFixed(2), msg.DueDate.In(w.loc).Format(DisplayDate), gymName)
	return w.send(ctx, msg.Phone, body)
}

func (w *WhatsApp) SendBirthdayWish(ctx context.Context, to Recipient) (Outcome, error) {
	gymName, err := settings.String(ctx, w.settings, settings.GymName)
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("Happy Birthday %s! 🎉🎂\n\nWishing you a wonderful day filled with strength and joy! Stay strong 💪\n\n- %s Team",
		to.Name, gymName)
	return w.send(ctx, to.Phone, body)
}

func (w *WhatsApp) send(ctx context.Context, phone, body string) (Outcome, error) {
	phone = NormalizePhone(phone, w.countryCode)
	if phone == "" {
		return OutcomeSkipped, nil
	}
	if w.transport == nil || !w.transport.Configured() {
		w.logger.Info("WhatsApp not configured, message skipped", zap.String("to", phone))
		return OutcomeSkipped, nil
	}
	if err := w.transport.SendText(ctx, phone, body); err != nil {
		return "", err
	}
	w.logger.Info("WhatsApp message sent", zap.String("to", phone))
	return OutcomeSent, nil
}
