package ledger

import "time"

type TransactionType string
type Pool string

const (
	TypeSubscriptionAllocation TransactionType = "subscription_allocation"
	TypePurchase               TransactionType = "purchase"
	TypeConsumption            TransactionType = "consumption"
	TypeExpiry                 TransactionType = "expiry"
	TypeRefund                 TransactionType = "refund"

	PoolSubscription Pool = "subscription"
	PoolPurchased    Pool = "purchased"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeSubscriptionAllocation, TypePurchase, TypeConsumption, TypeExpiry, TypeRefund:
		return true
	}
	return false
}

func (p Pool) Valid() bool {
	return p == PoolSubscription || p == PoolPurchased
}

// Account owns all transactions for one user. The credit columns are the
// materialized latest balance; the transaction log stays the source of
// truth and Replay can rebuild them.
type Account struct {
	ID                  int       `db:"id" json:"id"`
	UserID              int       `db:"user_id" json:"user_id"`
	SubscriptionCredits int64     `db:"subscription_credits" json:"subscription_credits"`
	PurchasedCredits    int64     `db:"purchased_credits" json:"purchased_credits"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID                       int             `db:"id" json:"id"`
	AccountID                int             `db:"account_id" json:"account_id"`
	Type                     TransactionType `db:"type" json:"type"`
	Pool                     Pool            `db:"pool" json:"pool"`
	Amount                   int64           `db:"amount" json:"amount"`
	BalanceAfterSubscription int64           `db:"balance_after_subscription" json:"balance_after_subscription"`
	BalanceAfterPurchased    int64           `db:"balance_after_purchased" json:"balance_after_purchased"`
	Description              string          `db:"description" json:"description"`
	ExternalRef              *string         `db:"external_ref" json:"external_ref,omitempty"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
}

// Entry is one signed movement on a single pool, before it is committed.
type Entry struct {
	Type   TransactionType
	Pool   Pool
	Amount int64
	// ResetTo, when set, overrides Amount: the delta that brings the pool
	// to exactly this value is computed inside the append's row lock, so a
	// write racing the caller's balance read cannot skew the result.
	ResetTo     *int64
	Description string
	ExternalRef *string
}

type Balance struct {
	SubscriptionCredits int64 `json:"subscription_credits"`
	PurchasedCredits    int64 `json:"purchased_credits"`
	Total               int64 `json:"total"`
}

func (a *Account) Balance() *Balance {
	return &Balance{
		SubscriptionCredits: a.SubscriptionCredits,
		PurchasedCredits:    a.PurchasedCredits,
		Total:               a.SubscriptionCredits + a.PurchasedCredits,
	}
}
