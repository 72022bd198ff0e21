package ledger

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupLedgerMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func accountRows(id, userID int, sub, pur int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "subscription_credits", "purchased_credits", "active", "created_at", "updated_at"}).
		AddRow(id, userID, sub, pur, true, time.Now(), time.Now())
}

func transactionColumns() []string {
	return []string{"id", "account_id", "type", "pool", "amount", "balance_after_subscription", "balance_after_purchased", "description", "external_ref", "created_at"}
}

func TestGetOrCreateAccount_WhenNotExists(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM accounts WHERE user_id = $1")).
		WithArgs(10).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW() RETURNING id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at")).
		WithArgs(10).
		WillReturnRows(accountRows(5, 10, 0, 0))

	a, err := repo.GetOrCreateAccount(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 5, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_SingleEntry(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	ref := "order_abc"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 100, 50))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM ledger_transactions WHERE account_id = $1 AND external_ref = $2 )")).
		WithArgs(7, ref).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(7, TypePurchase, PoolPurchased, int64(500), int64(100), int64(550), "credit pack", ref).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(1, 7, "purchase", "purchased", 500, 100, 550, "credit pack", ref, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET subscription_credits = $1, purchased_credits = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs(int64(100), int64(550), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	txs, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypePurchase, Pool: PoolPurchased, Amount: 500, Description: "credit pack", ExternalRef: &ref},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, int64(550), txs[0].BalanceAfterPurchased)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_ResetToComputesDeltaUnderLock(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	// The account holds 50 subscription credits by the time the row lock is
	// taken, regardless of what the caller saw before. The reset must land
	// the pool on exactly 500.
	ref := "alloc:7:1764547200"
	target := int64(500)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 50, 40))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM ledger_transactions WHERE account_id = $1 AND external_ref = $2 )")).
		WithArgs(7, ref).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(7, TypeSubscriptionAllocation, PoolSubscription, int64(450), int64(500), int64(40), "monthly allocation", ref).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(1, 7, "subscription_allocation", "subscription", 450, 500, 40, "monthly allocation", ref, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET subscription_credits = $1, purchased_credits = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs(int64(500), int64(40), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	txs, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypeSubscriptionAllocation, Pool: PoolSubscription, ResetTo: &target, Description: "monthly allocation", ExternalRef: &ref},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, int64(450), txs[0].Amount)
	require.Equal(t, int64(500), txs[0].BalanceAfterSubscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_ResetToZeroDrainsPool(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	ref := "expire:7:1764547200"
	var target int64

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 75, 40))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM ledger_transactions WHERE account_id = $1 AND external_ref = $2 )")).
		WithArgs(7, ref).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(7, TypeExpiry, PoolSubscription, int64(-75), int64(0), int64(40), "expired", ref).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(1, 7, "expiry", "subscription", -75, 0, 40, "expired", ref, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET subscription_credits = $1, purchased_credits = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs(int64(0), int64(40), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	txs, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypeExpiry, Pool: PoolSubscription, ResetTo: &target, Description: "expired", ExternalRef: &ref},
	})
	require.NoError(t, err)
	require.Equal(t, int64(-75), txs[0].Amount)
	require.Equal(t, int64(0), txs[0].BalanceAfterSubscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_TwoEntriesAtomic(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 10, 5))

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(7, TypeConsumption, PoolSubscription, int64(-10), int64(0), int64(5), "journal export", nil).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(1, 7, "consumption", "subscription", -10, 0, 5, "journal export", nil, time.Now()))

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(7, TypeConsumption, PoolPurchased, int64(-2), int64(0), int64(3), "journal export", nil).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(2, 7, "consumption", "purchased", -2, 0, 3, "journal export", nil, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET subscription_credits = $1, purchased_credits = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs(int64(0), int64(3), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	txs, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypeConsumption, Pool: PoolSubscription, Amount: -10, Description: "journal export"},
		{Type: TypeConsumption, Pool: PoolPurchased, Amount: -2, Description: "journal export"},
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_NegativeBalanceRollsBack(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 2, 0))

	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypeConsumption, Pool: PoolSubscription, Amount: -5, Description: "journal export"},
	})
	require.ErrorIs(t, err, ErrNegativeBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DuplicateExternalRef(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	ref := "order_dup"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, subscription_credits, purchased_credits, active, created_at, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(accountRows(7, 20, 0, 0))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM ledger_transactions WHERE account_id = $1 AND external_ref = $2 )")).
		WithArgs(7, ref).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), 20, []Entry{
		{Type: TypePurchase, Pool: PoolPurchased, Amount: 500, ExternalRef: &ref},
	})
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_RejectsEmptyAndInvalid(t *testing.T) {
	repo, _, close := setupLedgerMock(t)
	defer close()

	_, err := repo.Append(context.Background(), 20, nil)
	require.ErrorIs(t, err, ErrNoEntries)

	_, err = repo.Append(context.Background(), 20, []Entry{{Type: "bonus", Pool: PoolPurchased, Amount: 1}})
	require.ErrorIs(t, err, ErrInvalidEntry)
}

func TestListTransactions_Paginated(t *testing.T) {
	repo, mock, close := setupLedgerMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ledger_transactions WHERE account_id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	mock.ExpectQuery("SELECT id, account_id, type, pool, amount").
		WithArgs(7, 20, 20).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(3, 7, "consumption", "subscription", -5, 95, 50, "draft polish", nil, time.Now()))

	txs, totalPages, err := repo.ListTransactions(context.Background(), 7, 2, 20, "")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, 3, totalPages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactions_RejectsUnknownType(t *testing.T) {
	repo, _, close := setupLedgerMock(t)
	defer close()

	_, _, err := repo.ListTransactions(context.Background(), 7, 1, 20, "bonus")
	require.ErrorIs(t, err, ErrInvalidEntry)
}
