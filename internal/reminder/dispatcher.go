package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/calendar"
	"gymflow/internal/membership"
	"gymflow/internal/notify"
	"gymflow/internal/settings"
)

// MemberFinder selects the members a run should reach.
type MemberFinder interface {
	FindDueOn(ctx context.Context, date time.Time) ([]*membership.Member, error)
	FindByBirthday(ctx context.Context, month, day int) ([]*membership.Member, error)
}

// ReminderRecorder counts delivery attempts.
type ReminderRecorder interface {
	RecordReminder(ctx context.Context, reminderType, channel, status string)
}

// Deps collects the collaborators of the dispatcher.
type Deps struct {
	Members     MemberFinder
	Logs        LogStore
	Channels    []notify.ReminderSender
	Settings    settings.Provider
	Metrics     ReminderRecorder
	Clock       calendar.Clock
	Location    *time.Location
	SendTimeout time.Duration
	Logger      *zap.Logger
}

// Dispatcher delivers reminders over every channel and logs each attempt.
// One member or channel failing never stops a run.
type Dispatcher struct {
	Deps
	tracer trace.Tracer
}

func NewDispatcher(d Deps) *Dispatcher {
	if d.Clock == nil {
		d.Clock = calendar.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.SendTimeout <= 0 {
		d.SendTimeout = 30 * time.Second
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Dispatcher{Deps: d, tracer: otel.Tracer("gymflow/reminder")}
}

// SendPaymentReminders reaches every ACTIVE member due exactly
// REMINDER_DAYS_BEFORE days from today.
func (d *Dispatcher) SendPaymentReminders(ctx context.Context) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "reminder.payment_due")
	defer span.End()

	days, err := settings.ReminderDaysOf(ctx, d.Settings)
	if err != nil {
		return Result{}, err
	}
	amount, err := settings.Decimal(ctx, d.Settings, settings.MonthlyPackageAmount)
	if err != nil {
		return Result{}, err
	}

	today := calendar.Today(d.Clock, d.Location)
	target := time.Date(today.Year(), today.Month(), today.Day()+days, 0, 0, 0, 0, d.Location)
	members, err := d.Members.FindDueOn(ctx, target)
	if err != nil {
		return Result{}, fmt.Errorf("find members due on %s: %w", calendar.Format(target), err)
	}
	span.SetAttributes(
		attribute.String("reminder.target", calendar.Format(target)),
		attribute.Int("reminder.members", len(members)),
	)
	d.Logger.Info("Sending payment reminders",
		zap.Int("members", len(members)),
		zap.Int("days_before", days),
		zap.String("due_date", calendar.Format(target)),
	)

	message := "Payment reminder for " + target.Format(notify.DisplayDate)
	for _, m := range members {
		msg := notify.PaymentDue{Recipient: recipient(m), DueDate: target, Amount: amount}
		for _, ch := range d.Channels {
			d.attempt(ctx, m, TypePaymentDue, ch.Channel(), message, func(ctx context.Context) (notify.Outcome, error) {
				return ch.SendPaymentDueReminder(ctx, msg)
			})
		}
	}
	return Result{Processed: len(members)}, nil
}

// SendBirthdayWishes reaches every member born on today's month and day.
func (d *Dispatcher) SendBirthdayWishes(ctx context.Context) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "reminder.birthday")
	defer span.End()

	today := calendar.Today(d.Clock, d.Location)
	members, err := d.Members.FindByBirthday(ctx, int(today.Month()), today.Day())
	if err != nil {
		return Result{}, fmt.Errorf("find birthdays: %w", err)
	}
	span.SetAttributes(attribute.Int("reminder.members", len(members)))
	d.Logger.Info("Sending birthday wishes", zap.Int("members", len(members)))

	for _, m := range members {
		to := recipient(m)
		for _, ch := range d.Channels {
			d.attempt(ctx, m, TypeBirthday, ch.Channel(), "Birthday wish sent", func(ctx context.Context) (notify.Outcome, error) {
				return ch.SendBirthdayWish(ctx, to)
			})
		}
	}
	return Result{Processed: len(members)}, nil
}

// ListLogs returns reminder logs, newest first.
func (d *Dispatcher) ListLogs(ctx context.Context, f LogFilter) (*LogPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("type must be PAYMENT_DUE or BIRTHDAY.")
	}
	if f.Channel != "" && f.Channel != notify.ChannelEmail && f.Channel != notify.ChannelWhatsApp {
		return nil, apperr.Validation("channel must be EMAIL or WHATSAPP.")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status must be SENT, FAILED or SKIPPED.")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 30
	}

	logs, total, err := d.Logs.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &LogPage{Total: total, Page: f.Page, Limit: f.Limit, Logs: logs}, nil
}

func (d *Dispatcher) attempt(ctx context.Context, m *membership.Member, typ Type, channel notify.Channel, message string, send func(ctx context.Context) (notify.Outcome, error)) {
	entry := &Log{ID: uuid.New(), MemberID: m.ID, Type: typ, Channel: channel}

	outcome, err := d.send(ctx, send)
	if err != nil {
		d.Logger.Error("Reminder delivery failed",
			zap.String("member_id", m.ID.String()),
			zap.String("type", string(typ)),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		cause := err.Error()
		entry.Status = StatusFailed
		entry.Error = &cause
	} else {
		entry.Status = Status(outcome)
		entry.Message = &message
	}
	entry.SentAt = d.Clock.Now()

	if d.Metrics != nil {
		d.Metrics.RecordReminder(ctx, string(typ), string(channel), string(entry.Status))
	}
	if err := d.Logs.Append(ctx, entry); err != nil {
		d.Logger.Error("Failed to write reminder log",
			zap.String("member_id", m.ID.String()),
			zap.String("type", string(typ)),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
	}
}

// send bounds one delivery by SendTimeout and turns a panic into an error.
func (d *Dispatcher) send(ctx context.Context, fn func(ctx context.Context) (notify.Outcome, error)) (outcome notify.Outcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during send: %v", r)
		}
	}()
	return fn(ctx)
}

func recipient(m *membership.Member) notify.Recipient {
	return notify.Recipient{Name: m.FullName, Email: m.EmailAddress(), Phone: m.Phone}
}
