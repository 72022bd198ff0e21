package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPlanNotFound    = errors.New("subscription plan not found")
	ErrProductNotFound = errors.New("credit product not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetPlan(ctx context.Context, id string) (*SubscriptionPlan, error) {
	p := &SubscriptionPlan{}
	err := r.db.GetContext(ctx, p, `SELECT * FROM subscription_plans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]SubscriptionPlan, error) {
	plans := []SubscriptionPlan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT *
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY monthly_credits ASC
	`)
	return plans, err
}

func (r *repository) GetProduct(ctx context.Context, id string) (*CreditProduct, error) {
	p := &CreditProduct{}
	err := r.db.GetContext(ctx, p, `SELECT * FROM credit_products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) ListProducts(ctx context.Context) ([]CreditProduct, error) {
	products := []CreditProduct{}
	err := r.db.SelectContext(ctx, &products, `
		SELECT *
		FROM credit_products
		WHERE is_active = TRUE
		ORDER BY credits ASC
	`)
	return products, err
}
