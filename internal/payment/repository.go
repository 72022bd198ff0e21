package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrIntentNotFound = errors.New("payment intent not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error) {
	created := &PaymentIntent{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payment_intents (gateway_ref, account_id, kind, product_id, plan_id, expected_cents, credits, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id, gateway_ref, account_id, kind, product_id, plan_id, expected_cents, credits, status, transaction_id, created_at, updated_at
	`, intent.GatewayRef, intent.AccountID, intent.Kind, intent.ProductID, intent.PlanID, intent.ExpectedCents, intent.Credits).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*PaymentIntent, error) {
	intent := &PaymentIntent{}
	err := r.db.GetContext(ctx, intent, `
		SELECT id, gateway_ref, account_id, kind, product_id, plan_id, expected_cents, credits, status, transaction_id, created_at, updated_at
		FROM payment_intents
		WHERE gateway_ref = $1
	`, gatewayRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) ClaimPending(ctx context.Context, gatewayRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = 'fulfilled', updated_at = NOW()
		WHERE gateway_ref = $1 AND status = 'pending'
	`, gatewayRef)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) Reopen(ctx context.Context, gatewayRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = 'pending', updated_at = NOW()
		WHERE gateway_ref = $1 AND status = 'fulfilled' AND transaction_id IS NULL
	`, gatewayRef)
	return err
}

func (r *repository) AttachTransaction(ctx context.Context, gatewayRef string, transactionID int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET transaction_id = $1, updated_at = NOW()
		WHERE gateway_ref = $2
	`, transactionID, gatewayRef)
	return err
}
