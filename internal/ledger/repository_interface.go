package ledger

import "context"

type Repository interface {
	GetOrCreateAccount(ctx context.Context, userID int) (*Account, error)
	GetAccountByID(ctx context.Context, accountID int) (*Account, error)
	Append(ctx context.Context, userID int, entries []Entry) ([]Transaction, error)
	ListTransactions(ctx context.Context, accountID, page, limit int, txType string) ([]Transaction, int, error)
	ListAllTransactions(ctx context.Context, accountID int) ([]Transaction, error)
	GetTransactionByExternalRef(ctx context.Context, accountID int, externalRef string) (*Transaction, error)
}
