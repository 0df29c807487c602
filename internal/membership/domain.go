package membership

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is a member's lifecycle state.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusExpired
}

// Member represents a gym member. DueDate anchors the lifecycle: payments
// advance it and auto-expire compares it with today.
type Member struct {
	ID               uuid.UUID  `json:"id"`
	MemberNumber     int        `json:"memberNumber"`
	FullName         string     `json:"fullName"`
	NIC              *string    `json:"nic"`
	Email            *string    `json:"email"`
	Phone            string     `json:"phone"`
	Birthday         *time.Time `json:"birthday"`
	MedicalNotes     *string    `json:"medicalNotes"`
	EmergencyContact *string    `json:"emergencyContact"`
	Status           Status     `json:"status"`
	DueDate          time.Time  `json:"dueDate"`
	JoinDate         time.Time  `json:"joinDate"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// EmailAddress returns the email or "".
func (m *Member) EmailAddress() string {
	if m.Email == nil {
		return ""
	}
	return *m.Email
}

// RegisterInput is the data accepted when registering a member. Date fields
// are YYYY-MM-DD strings.
type RegisterInput struct {
	FullName         string `json:"fullName"`
	Phone            string `json:"phone"`
	NIC              string `json:"nic"`
	Email            string `json:"email"`
	Birthday         string `json:"birthday"`
	MedicalNotes     string `json:"medicalNotes"`
	EmergencyContact string `json:"emergencyContact"`
	JoinDate         string `json:"joinDate"`
	DueDate          string `json:"dueDate"`
}

// UpdateInput is a partial update. Only fields present in the request are
// applied; an explicit null clears an optional field.
type UpdateInput struct {
	FullName         Field[string] `json:"fullName"`
	Phone            Field[string] `json:"phone"`
	NIC              Field[string] `json:"nic"`
	Email            Field[string] `json:"email"`
	Birthday         Field[string] `json:"birthday"`
	MedicalNotes     Field[string] `json:"medicalNotes"`
	EmergencyContact Field[string] `json:"emergencyContact"`
	DueDate          Field[string] `json:"dueDate"`
	Status           Field[Status] `json:"status"`
}

// Field records whether a JSON key was present and its value, nil for null.
type Field[T any] struct {
	Set   bool
	Value *T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// ListFilter selects a page of members.
type ListFilter struct {
	Status Status
	Search string
	Page   int
	Limit  int
}

// MemberPage is one page of a member listing.
type MemberPage struct {
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	Members []*Member `json:"members"`
}

// EntryResult is the outcome of an entry check.
type EntryResult string

const (
	EntryAllowed EntryResult = "ALLOWED"
	EntryDenied  EntryResult = "DENIED"
)

// EntryMember is the member summary returned by an entry check.
type EntryMember struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Phone    string    `json:"phone"`
	Status   Status    `json:"status"`
	DueDate  time.Time `json:"dueDate"`
}

// EntryDecision tells a door device or the front desk whether to admit.
type EntryDecision struct {
	Allowed bool         `json:"allowed"`
	Result  EntryResult  `json:"result"`
	Reason  string       `json:"reason"`
	Member  *EntryMember `json:"member"`
}

// MemberRegisteredEvent is appended when a member registers.
type MemberRegisteredEvent struct {
	ID           uuid.UUID `json:"id"`
	MemberNumber int       `json:"member_number"`
	FullName     string    `json:"full_name"`
	DueDate      string    `json:"due_date"`
}

// MembershipExpiredEvent is appended for each member auto-expire flips.
type MembershipExpiredEvent struct {
	ID      uuid.UUID `json:"id"`
	DueDate string    `json:"due_date"`
	Before  string    `json:"before"`
}
