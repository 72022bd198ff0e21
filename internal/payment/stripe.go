package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// stripeGateway collects payment through Stripe Checkout. The order ref is
// the checkout session id; confirmation authenticity comes from Stripe
// itself (webhook signature or an API lookup), not from a client-supplied
// HMAC, so VerifySignature re-fetches the session.
type stripeGateway struct {
	appURL string
}

func NewStripeGateway(secretKey, appURL string) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{appURL: appURL}
}

func (g *stripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(g.appURL + "/billing?status=success"),
		CancelURL:         stripe.String(g.appURL + "/billing?status=cancelled"),
		ClientReferenceID: stripe.String(fmt.Sprint(req.AccountID)),
	}

	switch req.Kind {
	case KindSubscription:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.ProviderRef), Quantity: stripe.Int64(1)},
		}
	default:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		}
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &Order{
		Ref:         s.ID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		CheckoutURL: s.URL,
	}, nil
}

func (g *stripeGateway) VerifySignature(gatewayRef string, accountID int, amountCents int64, signature string) error {
	s, err := checkoutsession.Get(gatewayRef, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if s.ClientReferenceID != fmt.Sprint(accountID) {
		return ErrSignatureMismatch
	}
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		s.Status != stripe.CheckoutSessionStatusComplete {
		return ErrSignatureMismatch
	}

	return nil
}
