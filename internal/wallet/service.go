package wallet

import (
	"context"
	"errors"

	"craftlog/internal/ledger"
	"craftlog/internal/logger"
	"craftlog/internal/metrics"
)

var (
	ErrInvalidAmount       = errors.New("consumption amount must be positive")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type ConsumptionResult struct {
	FromSubscription int64                `json:"from_subscription"`
	FromPurchased    int64                `json:"from_purchased"`
	Balance          *ledger.Balance      `json:"balance"`
	Transactions     []ledger.Transaction `json:"transactions"`
}

type TransactionPage struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	TotalPages   int                  `json:"total_pages"`
}

type Service interface {
	GetBalance(ctx context.Context, userID int) (*ledger.Balance, error)
	Consume(ctx context.Context, userID int, amount int64, reason string) (*ConsumptionResult, error)
	ListTransactions(ctx context.Context, userID, page, limit int, txType string) (*TransactionPage, error)
	Audit(ctx context.Context, userID int) (*ledger.AuditReport, error)
}

type service struct {
	repo      ledger.Repository
	projector *ledger.Projector
}

func NewService(repo ledger.Repository, projector *ledger.Projector) Service {
	return &service{repo: repo, projector: projector}
}

func (s *service) GetBalance(ctx context.Context, userID int) (*ledger.Balance, error) {
	return s.projector.Balance(ctx, userID)
}

// Consume debits the subscription pool first; it resets every cycle, so it
// must be exhausted before the purchased pool, which persists.
func (s *service) Consume(ctx context.Context, userID int, amount int64, reason string) (*ConsumptionResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	a, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if a.SubscriptionCredits+a.PurchasedCredits < amount {
		metrics.RecordConsumptionFailure()
		return nil, ErrInsufficientCredits
	}

	fromSubscription := a.SubscriptionCredits
	if fromSubscription > amount {
		fromSubscription = amount
	}
	fromPurchased := amount - fromSubscription

	entries := make([]ledger.Entry, 0, 2)
	if fromSubscription > 0 {
		entries = append(entries, ledger.Entry{
			Type:        ledger.TypeConsumption,
			Pool:        ledger.PoolSubscription,
			Amount:      -fromSubscription,
			Description: reason,
		})
	}
	if fromPurchased > 0 {
		entries = append(entries, ledger.Entry{
			Type:        ledger.TypeConsumption,
			Pool:        ledger.PoolPurchased,
			Amount:      -fromPurchased,
			Description: reason,
		})
	}

	txs, err := s.repo.Append(ctx, userID, entries)
	if err != nil {
		// A concurrent writer can drain a pool between the read and the
		// append; the ledger's own guard catches it.
		if errors.Is(err, ledger.ErrNegativeBalance) {
			metrics.RecordConsumptionFailure()
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	s.projector.Invalidate(ctx, userID)

	if fromSubscription > 0 {
		metrics.RecordConsumption(string(ledger.PoolSubscription), fromSubscription)
	}
	if fromPurchased > 0 {
		metrics.RecordConsumption(string(ledger.PoolPurchased), fromPurchased)
	}

	last := txs[len(txs)-1]
	logger.Info("credits consumed",
		"user_id", userID,
		"amount", amount,
		"from_subscription", fromSubscription,
		"from_purchased", fromPurchased,
		"reason", reason,
	)

	return &ConsumptionResult{
		FromSubscription: fromSubscription,
		FromPurchased:    fromPurchased,
		Balance: &ledger.Balance{
			SubscriptionCredits: last.BalanceAfterSubscription,
			PurchasedCredits:    last.BalanceAfterPurchased,
			Total:               last.BalanceAfterSubscription + last.BalanceAfterPurchased,
		},
		Transactions: txs,
	}, nil
}

func (s *service) ListTransactions(ctx context.Context, userID, page, limit int, txType string) (*TransactionPage, error) {
	a, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if page <= 0 {
		page = 1
	}

	txs, totalPages, err := s.repo.ListTransactions(ctx, a.ID, page, limit, txType)
	if err != nil {
		return nil, err
	}

	return &TransactionPage{
		Transactions: txs,
		Page:         page,
		TotalPages:   totalPages,
	}, nil
}

func (s *service) Audit(ctx context.Context, userID int) (*ledger.AuditReport, error) {
	return s.projector.Audit(ctx, userID)
}
