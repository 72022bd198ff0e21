package catalog

import "context"

type Repository interface {
	GetPlan(ctx context.Context, id string) (*SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]SubscriptionPlan, error)
	GetProduct(ctx context.Context, id string) (*CreditProduct, error)
	ListProducts(ctx context.Context) ([]CreditProduct, error)
}
