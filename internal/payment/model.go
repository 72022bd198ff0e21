package payment

import (
	"time"

	"craftlog/internal/ledger"
	"craftlog/internal/subscription"
)

type IntentKind string
type IntentStatus string

const (
	KindTopUp        IntentKind = "topup"
	KindSubscription IntentKind = "subscription"

	IntentPending   IntentStatus = "pending"
	IntentFulfilled IntentStatus = "fulfilled"
	IntentFailed    IntentStatus = "failed"
)

func (k IntentKind) Valid() bool {
	return k == KindTopUp || k == KindSubscription
}

// PaymentIntent correlates a pending checkout with the gateway order that
// will eventually confirm it. Resolved exactly once.
type PaymentIntent struct {
	ID            int          `db:"id" json:"id"`
	GatewayRef    string       `db:"gateway_ref" json:"gateway_ref"`
	AccountID     int          `db:"account_id" json:"account_id"`
	Kind          IntentKind   `db:"kind" json:"kind"`
	ProductID     *string      `db:"product_id" json:"product_id,omitempty"`
	PlanID        *string      `db:"plan_id" json:"plan_id,omitempty"`
	ExpectedCents int64        `db:"expected_cents" json:"expected_cents"`
	Credits       int64        `db:"credits" json:"credits"`
	Status        IntentStatus `db:"status" json:"status"`
	TransactionID *int         `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// CheckoutPayload is what the client needs to hand to the gateway.
type CheckoutPayload struct {
	GatewayRef  string     `json:"gateway_ref"`
	Kind        IntentKind `json:"kind"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	KeyID       string     `json:"key_id,omitempty"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
}

type VerifyRequest struct {
	GatewayRef string `json:"gateway_ref" binding:"required"`
	// Signature is required by the HMAC gateway; the stripe gateway proves
	// authenticity by re-fetching the session, so clients on that flow omit
	// it.
	Signature       string     `json:"signature"`
	Kind            IntentKind `json:"kind" binding:"required"`
	ProductOrPlanID string     `json:"product_or_plan_id"`
}

type VerificationResult struct {
	GatewayRef       string                         `json:"gateway_ref"`
	TransactionID    int                            `json:"transaction_id"`
	Credits          int64                          `json:"credits"`
	AmountCents      int64                          `json:"amount_cents"`
	Balance          *ledger.Balance                `json:"balance"`
	Subscription     *subscription.UserSubscription `json:"subscription,omitempty"`
	AlreadyProcessed bool                           `json:"already_processed"`
}
