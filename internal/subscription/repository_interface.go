package subscription

import (
	"context"
	"time"
)

type Repository interface {
	GetByAccount(ctx context.Context, accountID int) (*UserSubscription, error)
	Upsert(ctx context.Context, accountID int, planID string, status Status, periodEnd time.Time) (*UserSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, accountID int, cancel bool) (*UserSubscription, error)
	ListDue(ctx context.Context, now time.Time) ([]UserSubscription, error)
}
