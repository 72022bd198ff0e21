package subscription

import (
	"time"

	"craftlog/internal/catalog"
)

type Status string

const (
	// StatusNone is never stored; it is the API view of an account with no
	// subscription row.
	StatusNone       Status = "none"
	StatusActive     Status = "active"
	StatusCancelling Status = "cancelling"
	StatusExpired    Status = "expired"
)

type UserSubscription struct {
	ID                int       `db:"id" json:"id"`
	AccountID         int       `db:"account_id" json:"account_id"`
	PlanID            string    `db:"plan_id" json:"plan_id"`
	Status            Status    `db:"status" json:"status"`
	CurrentPeriodEnd  time.Time `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd bool      `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`

	Plan *catalog.SubscriptionPlan `db:"-" json:"plan,omitempty"`
}
