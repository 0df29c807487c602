// Package notify delivers member notifications over email and WhatsApp.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// Outcome is the result of a send that did not fail.
type Outcome string

const (
	OutcomeSent    Outcome = "SENT"
	OutcomeSkipped Outcome = "SKIPPED"
)

// Recipient identifies who a message is for. Email may be empty.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// PaymentDue is the content of a payment reminder.
type PaymentDue struct {
	Recipient
	DueDate time.Time
	Amount  decimal.Decimal
}

// Receipt is the content of a payment receipt.
type Receipt struct {
	Recipient
	ReceiptNumber string
	Amount        decimal.Decimal
	Month         int
	Year          int
	PaidAt        time.Time
	CollectedBy   string
	NextDueDate   time.Time
}

// Welcome is the content of a registration message.
type Welcome struct {
	Recipient
	DueDate time.Time
}

// Plan is a meal or workout plan written for one member. Kind is the
// member-facing label, such as "Meal Plan".
type Plan struct {
	Recipient
	Kind    string
	Title   string
	Content string
}

// ReminderSender is a channel able to deliver the scheduled reminders.
type ReminderSender interface {
	Channel() Channel
	SendPaymentDueReminder(ctx context.Context, msg PaymentDue) (Outcome, error)
	SendBirthdayWish(ctx context.Context, to Recipient) (Outcome, error)
}

// ReceiptSender delivers payment receipts.
type ReceiptSender interface {
	SendPaymentReceipt(ctx context.Context, msg Receipt) (Outcome, error)
}

// WelcomeSender delivers registration messages.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, msg Welcome) (Outcome, error)
}

// PlanSender delivers member plans.
type PlanSender interface {
	SendPlan(ctx context.Context, msg Plan) (Outcome, error)
}

// DisplayDate formats dates in member-facing text.
const DisplayDate = "02 January 2006"
