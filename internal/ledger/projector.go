package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"craftlog/internal/logger"
)

const balanceCacheTTL = 5 * time.Minute

// Projector derives the wallet view. The account row carries the
// materialized balance; Redis fronts it for the read-heavy wallet GETs and
// Replay rebuilds it from the log for audits.
type Projector struct {
	repo  Repository
	cache *redis.Client
}

func NewProjector(repo Repository, cache *redis.Client) *Projector {
	return &Projector{repo: repo, cache: cache}
}

func balanceCacheKey(userID int) string {
	return fmt.Sprintf("billing:balance:%d", userID)
}

func (p *Projector) Balance(ctx context.Context, userID int) (*Balance, error) {
	if p.cache != nil {
		raw, err := p.cache.Get(ctx, balanceCacheKey(userID)).Result()
		if err == nil {
			b := &Balance{}
			if err := json.Unmarshal([]byte(raw), b); err == nil {
				return b, nil
			}
		}
	}

	a, err := p.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	b := a.Balance()

	if p.cache != nil {
		if data, err := json.Marshal(b); err == nil {
			if err := p.cache.Set(ctx, balanceCacheKey(userID), data, balanceCacheTTL).Err(); err != nil {
				logger.Warn("failed to cache wallet balance", "user_id", userID, "error", err)
			}
		}
	}

	return b, nil
}

// Invalidate drops the cached balance; called after every successful append.
func (p *Projector) Invalidate(ctx context.Context, userID int) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Del(ctx, balanceCacheKey(userID)).Err(); err != nil {
		logger.Warn("failed to invalidate wallet balance cache", "user_id", userID, "error", err)
	}
}

// Replay folds the ordered transaction log into a balance. Pure; never
// mutates the ledger.
func Replay(txs []Transaction) *Balance {
	b := &Balance{}
	for _, t := range txs {
		switch t.Pool {
		case PoolSubscription:
			b.SubscriptionCredits += t.Amount
		case PoolPurchased:
			b.PurchasedCredits += t.Amount
		}
	}
	b.Total = b.SubscriptionCredits + b.PurchasedCredits
	return b
}

// VerifyChain checks that every balance_after snapshot equals the prior
// snapshot plus the entry's amount on its pool.
func VerifyChain(txs []Transaction) error {
	var sub, pur int64
	for _, t := range txs {
		switch t.Pool {
		case PoolSubscription:
			sub += t.Amount
		case PoolPurchased:
			pur += t.Amount
		}
		if t.BalanceAfterSubscription != sub || t.BalanceAfterPurchased != pur {
			return fmt.Errorf("ledger chain broken at transaction %d: snapshot (%d, %d), replay (%d, %d)",
				t.ID, t.BalanceAfterSubscription, t.BalanceAfterPurchased, sub, pur)
		}
		if sub < 0 || pur < 0 {
			return fmt.Errorf("ledger chain broken at transaction %d: negative pool", t.ID)
		}
	}
	return nil
}

type AuditReport struct {
	AccountID    int      `json:"account_id"`
	Materialized *Balance `json:"materialized"`
	Replayed     *Balance `json:"replayed"`
	Transactions int      `json:"transactions"`
	Consistent   bool     `json:"consistent"`
	ChainError   string   `json:"chain_error,omitempty"`
}

// Audit replays the full log for one account and compares it against the
// materialized account balance.
func (p *Projector) Audit(ctx context.Context, userID int) (*AuditReport, error) {
	a, err := p.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := p.repo.ListAllTransactions(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	replayed := Replay(txs)
	report := &AuditReport{
		AccountID:    a.ID,
		Materialized: a.Balance(),
		Replayed:     replayed,
		Transactions: len(txs),
	}
	report.Consistent = replayed.SubscriptionCredits == a.SubscriptionCredits &&
		replayed.PurchasedCredits == a.PurchasedCredits
	if err := VerifyChain(txs); err != nil {
		report.Consistent = false
		report.ChainError = err.Error()
	}

	return report, nil
}
