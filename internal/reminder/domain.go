// Package reminder sends the daily payment reminders and birthday wishes and
// keeps a log of every delivery attempt.
package reminder

import (
	"time"

	"github.com/google/uuid"

	"gymflow/internal/notify"
)

// Type is the kind of reminder.
type Type string

const (
	TypePaymentDue Type = "PAYMENT_DUE"
	TypeBirthday   Type = "BIRTHDAY"
)

func (t Type) Valid() bool {
	return t == TypePaymentDue || t == TypeBirthday
}

// Status is the outcome of one delivery attempt.
type Status string

const (
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

func (s Status) Valid() bool {
	return s == StatusSent || s == StatusFailed || s == StatusSkipped
}

// Log records one attempt to reach one member on one channel.
type Log struct {
	ID       uuid.UUID      `json:"id"`
	MemberID uuid.UUID      `json:"memberId"`
	Type     Type           `json:"type"`
	Channel  notify.Channel `json:"channel"`
	Status   Status         `json:"status"`
	Message  *string        `json:"message"`
	Error    *string        `json:"error"`
	SentAt   time.Time      `json:"sentAt"`
	Member   *LogMember     `json:"member,omitempty"`
}

type LogMember struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// LogFilter narrows a log listing. Zero values mean no filter.
type LogFilter struct {
	Type     Type
	Channel  notify.Channel
	Status   Status
	MemberID *uuid.UUID
	Page     int
	Limit    int
}

type LogPage struct {
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Logs  []*Log `json:"logs"`
}

// Result reports how many members a run covered.
type Result struct {
	Processed int `json:"processed"`
}
