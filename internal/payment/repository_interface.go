package payment

import "context"

type Repository interface {
	Create(ctx context.Context, intent *PaymentIntent) (*PaymentIntent, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*PaymentIntent, error)
	// ClaimPending flips a pending intent to fulfilled; reports false when
	// another caller got there first.
	ClaimPending(ctx context.Context, gatewayRef string) (bool, error)
	Reopen(ctx context.Context, gatewayRef string) error
	AttachTransaction(ctx context.Context, gatewayRef string, transactionID int) error
}
