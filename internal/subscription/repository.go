package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNoSubscription = errors.New("account has no subscription")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByAccount(ctx context.Context, accountID int) (*UserSubscription, error) {
	sub := &UserSubscription{}
	err := r.db.GetContext(ctx, sub, `
		SELECT id, account_id, plan_id, status, current_period_end, cancel_at_period_end, created_at, updated_at
		FROM user_subscriptions
		WHERE account_id = $1
	`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Upsert replaces the single subscription row per account; changing plans
// never creates a second record.
func (r *repository) Upsert(ctx context.Context, accountID int, planID string, status Status, periodEnd time.Time) (*UserSubscription, error) {
	sub := &UserSubscription{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO user_subscriptions (account_id, plan_id, status, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (account_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id,
		    status = EXCLUDED.status,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = FALSE,
		    updated_at = NOW()
		RETURNING id, account_id, plan_id, status, current_period_end, cancel_at_period_end, created_at, updated_at
	`, accountID, planID, status, periodEnd).StructScan(sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) SetCancelAtPeriodEnd(ctx context.Context, accountID int, cancel bool) (*UserSubscription, error) {
	status := StatusActive
	if cancel {
		status = StatusCancelling
	}

	sub := &UserSubscription{}
	err := r.db.QueryRowxContext(ctx, `
		UPDATE user_subscriptions
		SET cancel_at_period_end = $1,
		    status = $2,
		    updated_at = NOW()
		WHERE account_id = $3 AND status IN ('active', 'cancelling')
		RETURNING id, account_id, plan_id, status, current_period_end, cancel_at_period_end, created_at, updated_at
	`, cancel, status, accountID).StructScan(sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time) ([]UserSubscription, error) {
	subs := []UserSubscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT id, account_id, plan_id, status, current_period_end, cancel_at_period_end, created_at, updated_at
		FROM user_subscriptions
		WHERE status IN ('active', 'cancelling')
		  AND current_period_end <= $1
		ORDER BY current_period_end ASC
	`, now)
	return subs, err
}
