package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNoEntries          = errors.New("append requires at least one entry")
	ErrInvalidEntry       = errors.New("invalid transaction type or pool")
	ErrNegativeBalance    = errors.New("operation would drive a pool balance negative")
	ErrDuplicateReference = errors.New("external reference already recorded for this account")
	ErrTransactionMissing = errors.New("transaction not found")
	ErrAccountMissing     = errors.New("account not found")
)

const pqUniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateAccount(ctx context.Context, userID int) (*Account, error) {
	a := &Account{}
	err := r.db.GetContext(ctx, a, `SELECT * FROM accounts WHERE user_id = $1`, userID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		 RETURNING id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at`,
		userID,
	).StructScan(a)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (r *repository) GetAccountByID(ctx context.Context, accountID int) (*Account, error) {
	a := &Account{}
	err := r.db.GetContext(ctx, a, `SELECT * FROM accounts WHERE id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountMissing
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Append is the only ledger mutation. Writers for the same account are
// serialized by the row lock on accounts; the partial unique index on
// (account_id, external_ref) is the idempotency backstop.
func (r *repository) Append(ctx context.Context, userID int, entries []Entry) ([]Transaction, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	for _, e := range entries {
		if !e.Type.Valid() || !e.Pool.Valid() {
			return nil, ErrInvalidEntry
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var a Account
	err = tx.QueryRowxContext(ctx,
		`SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at
		 FROM accounts
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&a)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO accounts (user_id)
			 VALUES ($1)
			 RETURNING id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at`,
			userID,
		).StructScan(&a)
		if err != nil {
			return nil, err
		}
	}

	subCredits := a.SubscriptionCredits
	purCredits := a.PurchasedCredits

	committed := make([]Transaction, 0, len(entries))
	for _, e := range entries {
		if e.ExternalRef != nil {
			var exists bool
			err = tx.GetContext(ctx, &exists,
				`SELECT EXISTS (
					SELECT 1 FROM ledger_transactions
					WHERE account_id = $1 AND external_ref = $2
				)`,
				a.ID, *e.ExternalRef,
			)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrDuplicateReference
			}
		}

		amount := e.Amount
		if e.ResetTo != nil {
			switch e.Pool {
			case PoolSubscription:
				amount = *e.ResetTo - subCredits
			case PoolPurchased:
				amount = *e.ResetTo - purCredits
			}
		}

		switch e.Pool {
		case PoolSubscription:
			subCredits += amount
		case PoolPurchased:
			purCredits += amount
		}
		if subCredits < 0 || purCredits < 0 {
			return nil, ErrNegativeBalance
		}

		var row Transaction
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO ledger_transactions
			    (account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref, created_at`,
			a.ID, e.Type, e.Pool, amount, subCredits, purCredits, e.Description, e.ExternalRef,
		).StructScan(&row)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
				return nil, ErrDuplicateReference
			}
			return nil, err
		}
		committed = append(committed, row)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts
		 SET subscription_credits = $1, purchased_credits = $2, updated_at = NOW()
		 WHERE id = $3`,
		subCredits, purCredits, a.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return committed, nil
}

func (r *repository) ListTransactions(ctx context.Context, accountID, page, limit int, txType string) ([]Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int
	var txs []Transaction
	if txType != "" {
		if !TransactionType(txType).Valid() {
			return nil, 0, ErrInvalidEntry
		}
		err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1 AND type = $2`,
			accountID, txType)
		if err != nil {
			return nil, 0, err
		}
		err = r.db.SelectContext(ctx, &txs, `
			SELECT id, account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref, created_at
			FROM ledger_transactions
			WHERE account_id = $1 AND type = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4
		`, accountID, txType, limit, (page-1)*limit)
		if err != nil {
			return nil, 0, err
		}
	} else {
		err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1`,
			accountID)
		if err != nil {
			return nil, 0, err
		}
		err = r.db.SelectContext(ctx, &txs, `
			SELECT id, account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref, created_at
			FROM ledger_transactions
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`, accountID, limit, (page-1)*limit)
		if err != nil {
			return nil, 0, err
		}
	}

	totalPages := (total + limit - 1) / limit
	return txs, totalPages, nil
}

func (r *repository) ListAllTransactions(ctx context.Context, accountID int) ([]Transaction, error) {
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref, created_at
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC
	`, accountID)
	return txs, err
}

func (r *repository) GetTransactionByExternalRef(ctx context.Context, accountID int, externalRef string) (*Transaction, error) {
	t := &Transaction{}
	err := r.db.GetContext(ctx, t, `
		SELECT id, account_id, type, pool, amount, balance_after_subscription, balance_after_purchased, description, external_ref, created_at
		FROM ledger_transactions
		WHERE account_id = $1 AND external_ref = $2
	`, accountID, externalRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionMissing
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
