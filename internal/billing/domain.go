package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one recorded monthly membership fee. Payments are never
// modified after insert.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptNumber string          `json:"receiptNumber"`
	MemberID      *uuid.UUID      `json:"memberId"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Amount        decimal.Decimal `json:"amount"`
	PaidDate      time.Time       `json:"paidDate"`
	Notes         *string         `json:"notes"`
	CollectedByID *uuid.UUID      `json:"collectedById"`
	Member        *PaymentMember  `json:"member,omitempty"`
	CollectedBy   *Collector      `json:"collectedBy,omitempty"`
}

// PaymentMember is the member summary joined onto a payment. It is absent
// once the member has been deleted.
type PaymentMember struct {
	FullName string  `json:"fullName"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email,omitempty"`
}

// Collector is the staff user who took a payment.
type Collector struct {
	Name string `json:"name"`
}

// Payer is the member row locked while a payment is recorded.
type Payer struct {
	ID       uuid.UUID
	FullName string
	Email    *string
	Phone    string
}

// RecordInput is a payment request. CollectedByID and CollectedByName come
// from the authenticated staff user, never from the request body.
type RecordInput struct {
	MemberID        uuid.UUID       `json:"memberId"`
	Month           int             `json:"month"`
	Year            int             `json:"year"`
	Amount          decimal.Decimal `json:"amount"`
	Notes           string          `json:"notes"`
	CollectedByID   *uuid.UUID      `json:"-"`
	CollectedByName string          `json:"-"`
}

// ListFilter narrows a payment listing. Zero values mean no filter.
type ListFilter struct {
	MemberID *uuid.UUID
	Month    int
	Year     int
	Page     int
	Limit    int
}

type PaymentPage struct {
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
	Payments []*Payment `json:"payments"`
}

// MonthRevenue is one month's takings.
type MonthRevenue struct {
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// RevenueSummary covers all twelve months of a year, zero-filled.
type RevenueSummary struct {
	Year         int             `json:"year"`
	Months       []MonthRevenue  `json:"months"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// PaymentRecordedEvent is appended with every payment.
type PaymentRecordedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	MemberID      uuid.UUID       `json:"member_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Amount        decimal.Decimal `json:"amount"`
	NextDueDate   string          `json:"next_due_date"`
}
