// Package plans keeps the meal and workout plans trainers write for members.
// A member has at most one plan of each type; sending a new one replaces it.
package plans

import (
	"time"

	"github.com/google/uuid"
)

// Type is the kind of plan.
type Type string

const (
	TypeMealPlan Type = "MEAL_PLAN"
	TypeWorkout  Type = "WORKOUT"
)

func (t Type) Valid() bool {
	return t == TypeMealPlan || t == TypeWorkout
}

// Label is the member-facing name of the plan type.
func (t Type) Label() string {
	if t == TypeMealPlan {
		return "Meal Plan"
	}
	return "Workout Plan"
}

// Plan is the current plan of one type for a member.
type Plan struct {
	ID       uuid.UUID  `json:"id"`
	MemberID uuid.UUID  `json:"memberId"`
	Type     Type       `json:"type"`
	Title    *string    `json:"title"`
	Content  string     `json:"content"`
	SentByID *uuid.UUID `json:"sentById"`
	SentAt   time.Time  `json:"sentAt"`
}

// MemberPlans holds a member's current plans. Either may be nil.
type MemberPlans struct {
	MealPlan *Plan `json:"mealPlan"`
	Workout  *Plan `json:"workout"`
}

// SendInput is a new plan for a member.
type SendInput struct {
	Type     Type       `json:"type"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	SentByID *uuid.UUID `json:"-"`
}

// SendResult is the stored plan and whether an email was queued for it.
type SendResult struct {
	Plan        *Plan
	EmailQueued bool
}
