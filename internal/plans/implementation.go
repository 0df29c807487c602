package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/logger"
	"gymflow/internal/notify"
)

// Deps collects the collaborators of the plan service.
type Deps struct {
	Store   Store
	Members MemberFinder
	Mailer  notify.PlanSender
	Queue   Enqueuer
	Logger  *zap.Logger
}

type service struct {
	Deps
}

func NewService(d Deps) Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{Deps: d}
}

func (s *service) MemberPlans(ctx context.Context, memberID uuid.UUID) (*MemberPlans, error) {
	current, err := s.Store.Current(ctx, memberID)
	if err != nil {
		return nil, err
	}
	out := &MemberPlans{}
	for _, p := range current {
		switch p.Type {
		case TypeMealPlan:
			out.MealPlan = p
		case TypeWorkout:
			out.Workout = p
		}
	}
	return out, nil
}

// SendPlan replaces the member's plan of in.Type and queues it for email when
// the member has an address. The plan is kept even if the email later fails.
func (s *service) SendPlan(ctx context.Context, memberID uuid.UUID, in SendInput) (*SendResult, error) {
	if !in.Type.Valid() {
		return nil, apperr.Validation("type must be MEAL_PLAN or WORKOUT.")
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, apperr.Validation("content is required.")
	}

	member, err := s.Members.FindByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		ID:       uuid.New(),
		MemberID: memberID,
		Type:     in.Type,
		Content:  in.Content,
		SentByID: in.SentByID,
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		p.Title = &title
	}
	if err := s.Store.Replace(ctx, p); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.Logger).With(
		zap.String("member_id", memberID.String()),
		zap.String("type", string(p.Type)),
	)
	result := &SendResult{Plan: p}
	if member.Email == nil {
		log.Warn("Plan saved but member has no email, skipping send")
		return result, nil
	}
	if s.Mailer == nil || s.Queue == nil {
		return result, nil
	}

	msg := notify.Plan{
		Recipient: notify.Recipient{Name: member.FullName, Email: *member.Email, Phone: member.Phone},
		Kind:      p.Type.Label(),
		Content:   p.Content,
	}
	if p.Title != nil {
		msg.Title = *p.Title
	}
	result.EmailQueued = s.Queue.Enqueue("plan email", func(ctx context.Context) error {
		_, err := s.Mailer.SendPlan(ctx, msg)
		return err
	})
	log.Info("Plan saved", zap.Bool("email_queued", result.EmailQueued))
	return result, nil
}
