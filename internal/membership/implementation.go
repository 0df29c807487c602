package membership

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/calendar"
	"gymflow/internal/eventstore"
	"gymflow/internal/notify"
	"gymflow/internal/settings"
)

// Deps collects the collaborators of the membership service.
type Deps struct {
	Store    Store
	Events   HistoryReader
	Settings settings.Provider
	Welcome  notify.WelcomeSender
	Queue    Enqueuer
	Clock    calendar.Clock
	Location *time.Location
	Logger   *zap.Logger
}

// service implements the Service interface.
type service struct {
	Deps
}

// NewService creates a new membership service instance.
func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = calendar.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{Deps: d}
}

// RegisterMember creates an ACTIVE member whose first due date follows
// DUE_DAY unless one is given, then queues a welcome email.
func (s *service) RegisterMember(ctx context.Context, in RegisterInput) (*Member, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.FullName == "" || in.Phone == "" {
		return nil, apperr.Validation("fullName and phone are required.")
	}

	now := s.Clock.Now()
	m := &Member{
		ID:               uuid.New(),
		FullName:         in.FullName,
		Phone:            in.Phone,
		NIC:              optional(in.NIC),
		Email:            optional(in.Email),
		MedicalNotes:     optional(in.MedicalNotes),
		EmergencyContact: optional(in.EmergencyContact),
		Status:           StatusActive,
		JoinDate:         calendar.DateOf(now, s.Location),
	}

	var err error
	if m.Birthday, err = s.optionalDate("birthday", in.Birthday); err != nil {
		return nil, err
	}
	if in.JoinDate != "" {
		if m.JoinDate, err = s.parseDate("joinDate", in.JoinDate); err != nil {
			return nil, err
		}
	}
	if in.DueDate != "" {
		if m.DueDate, err = s.parseDate("dueDate", in.DueDate); err != nil {
			return nil, err
		}
	} else {
		dueDay, err := settings.DueDayOf(ctx, s.Settings)
		if err != nil {
			return nil, err
		}
		m.DueDate = BuildInitialDueDate(now, dueDay, s.Location)
	}

	if err := s.Store.Create(ctx, m); err != nil {
		return nil, err
	}
	s.Logger.Info("Member registered",
		zap.String("member_id", m.ID.String()),
		zap.Int("member_number", m.MemberNumber),
		zap.String("due_date", calendar.Format(m.DueDate)),
	)

	if m.Email != nil && s.Welcome != nil && s.Queue != nil {
		welcome := notify.Welcome{
			Recipient: notify.Recipient{Name: m.FullName, Email: *m.Email, Phone: m.Phone},
			DueDate:   m.DueDate,
		}
		s.Queue.Enqueue("welcome email", func(ctx context.Context) error {
			_, err := s.Welcome.SendWelcome(ctx, welcome)
			return err
		})
	}
	return m, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.Store.FindByID(ctx, id)
}

// maxSearchRunes caps the search term in characters, not bytes.
const maxSearchRunes = 100

func (s *service) ListMembers(ctx context.Context, f ListFilter) (*MemberPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status must be ACTIVE or EXPIRED.")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	f.Search = strings.TrimSpace(f.Search)
	if r := []rune(f.Search); len(r) > maxSearchRunes {
		f.Search = string(r[:maxSearchRunes])
	}

	members, total, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &MemberPage{Total: total, Page: f.Page, Limit: f.Limit, Members: members}, nil
}

// UpdateMember applies the fields present in in.
func (s *service) UpdateMember(ctx context.Context, id uuid.UUID, in UpdateInput) (*Member, error) {
	m, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FullName.Set {
		if in.FullName.Value == nil || strings.TrimSpace(*in.FullName.Value) == "" {
			return nil, apperr.Validation("fullName cannot be empty.")
		}
		m.FullName = strings.TrimSpace(*in.FullName.Value)
	}
	if in.Phone.Set {
		if in.Phone.Value == nil || strings.TrimSpace(*in.Phone.Value) == "" {
			return nil, apperr.Validation("phone cannot be empty.")
		}
		m.Phone = strings.TrimSpace(*in.Phone.Value)
	}
	applyOptional(&m.NIC, in.NIC)
	applyOptional(&m.Email, in.Email)
	applyOptional(&m.MedicalNotes, in.MedicalNotes)
	applyOptional(&m.EmergencyContact, in.EmergencyContact)

	if in.Birthday.Set {
		var raw string
		if in.Birthday.Value != nil {
			raw = *in.Birthday.Value
		}
		if m.Birthday, err = s.optionalDate("birthday", raw); err != nil {
			return nil, err
		}
	}
	if in.DueDate.Set {
		if in.DueDate.Value == nil {
			return nil, apperr.Validation("dueDate cannot be empty.")
		}
		if m.DueDate, err = s.parseDate("dueDate", *in.DueDate.Value); err != nil {
			return nil, err
		}
	}
	if in.Status.Set {
		if in.Status.Value == nil || !in.Status.Value.Valid() {
			return nil, apperr.Validation("status must be ACTIVE or EXPIRED.")
		}
		m.Status = *in.Status.Value
	}

	if err := s.Store.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) DeleteMember(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("Member deleted", zap.String("member_id", id.String()))
	return nil
}

// CheckEntry admits ACTIVE members. Unknown ids are denied, not errors, so a
// door device always gets a decision.
func (s *service) CheckEntry(ctx context.Context, id uuid.UUID) (*EntryDecision, error) {
	m, err := s.Store.FindByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return &EntryDecision{Result: EntryDenied, Reason: "Member not found."}, nil
	}
	if err != nil {
		return nil, err
	}

	summary := &EntryMember{ID: m.ID, FullName: m.FullName, Phone: m.Phone, Status: m.Status, DueDate: m.DueDate}
	if m.Status == StatusActive {
		return &EntryDecision{Allowed: true, Result: EntryAllowed, Reason: "Membership is active.", Member: summary}, nil
	}
	return &EntryDecision{
		Result: EntryDenied,
		Reason: "Membership is expired. Please renew your membership.",
		Member: summary,
	}, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	if _, err := s.Store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Events.MemberHistory(ctx, id)
}

func (s *service) parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(calendar.Layout) {
		raw = raw[:len(calendar.Layout)]
	}
	d, err := calendar.Parse(raw, s.Location)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a date (YYYY-MM-DD).", field)
	}
	return d, nil
}

func (s *service) optionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := s.parseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func applyOptional(dst **string, f Field[string]) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	*dst = optional(*f.Value)
}
