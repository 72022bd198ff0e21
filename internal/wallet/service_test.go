package wallet

import (
	"context"
	"testing"

	"craftlog/internal/ledger"
	"craftlog/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type MockLedgerRepo struct{ mock.Mock }

func (m *MockLedgerRepo) GetOrCreateAccount(ctx context.Context, userID int) (*ledger.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockLedgerRepo) GetAccountByID(ctx context.Context, accountID int) (*ledger.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockLedgerRepo) Append(ctx context.Context, userID int, entries []ledger.Entry) ([]ledger.Transaction, error) {
	args := m.Called(ctx, userID, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) ListTransactions(ctx context.Context, accountID, page, limit int, txType string) ([]ledger.Transaction, int, error) {
	args := m.Called(ctx, accountID, page, limit, txType)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]ledger.Transaction), args.Int(1), args.Error(2)
}

func (m *MockLedgerRepo) ListAllTransactions(ctx context.Context, accountID int) ([]ledger.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) GetTransactionByExternalRef(ctx context.Context, accountID int, externalRef string) (*ledger.Transaction, error) {
	args := m.Called(ctx, accountID, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func newTestService(repo ledger.Repository) Service {
	return NewService(repo, ledger.NewProjector(repo, nil))
}

func TestConsume_WaterfallAcrossPools(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1, SubscriptionCredits: 10, PurchasedCredits: 5}, nil)
	repo.On("Append", ctx, 1, []ledger.Entry{
		{Type: ledger.TypeConsumption, Pool: ledger.PoolSubscription, Amount: -10, Description: "journal export"},
		{Type: ledger.TypeConsumption, Pool: ledger.PoolPurchased, Amount: -2, Description: "journal export"},
	}).Return([]ledger.Transaction{
		{ID: 1, AccountID: 7, Type: ledger.TypeConsumption, Pool: ledger.PoolSubscription, Amount: -10, BalanceAfterSubscription: 0, BalanceAfterPurchased: 5},
		{ID: 2, AccountID: 7, Type: ledger.TypeConsumption, Pool: ledger.PoolPurchased, Amount: -2, BalanceAfterSubscription: 0, BalanceAfterPurchased: 3},
	}, nil)

	result, err := svc.Consume(ctx, 1, 12, "journal export")
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.FromSubscription)
	assert.Equal(t, int64(2), result.FromPurchased)
	assert.Equal(t, int64(0), result.Balance.SubscriptionCredits)
	assert.Equal(t, int64(3), result.Balance.PurchasedCredits)
	assert.Len(t, result.Transactions, 2)
	repo.AssertExpectations(t)
}

func TestConsume_SubscriptionPoolOnly(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1, SubscriptionCredits: 50, PurchasedCredits: 20}, nil)
	repo.On("Append", ctx, 1, []ledger.Entry{
		{Type: ledger.TypeConsumption, Pool: ledger.PoolSubscription, Amount: -30, Description: "ai summary"},
	}).Return([]ledger.Transaction{
		{ID: 1, AccountID: 7, Type: ledger.TypeConsumption, Pool: ledger.PoolSubscription, Amount: -30, BalanceAfterSubscription: 20, BalanceAfterPurchased: 20},
	}, nil)

	result, err := svc.Consume(ctx, 1, 30, "ai summary")
	require.NoError(t, err)

	assert.Equal(t, int64(30), result.FromSubscription)
	assert.Equal(t, int64(0), result.FromPurchased)
	assert.Len(t, result.Transactions, 1)
	repo.AssertExpectations(t)
}

func TestConsume_PurchasedPoolOnly(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1, SubscriptionCredits: 0, PurchasedCredits: 20}, nil)
	repo.On("Append", ctx, 1, []ledger.Entry{
		{Type: ledger.TypeConsumption, Pool: ledger.PoolPurchased, Amount: -20, Description: "ai summary"},
	}).Return([]ledger.Transaction{
		{ID: 1, AccountID: 7, Type: ledger.TypeConsumption, Pool: ledger.PoolPurchased, Amount: -20, BalanceAfterSubscription: 0, BalanceAfterPurchased: 0},
	}, nil)

	result, err := svc.Consume(ctx, 1, 20, "ai summary")
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.FromSubscription)
	assert.Equal(t, int64(20), result.FromPurchased)
	repo.AssertExpectations(t)
}

func TestConsume_InsufficientCredits_NoAppend(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1, SubscriptionCredits: 2, PurchasedCredits: 0}, nil)

	_, err := svc.Consume(ctx, 1, 5, "journal export")
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_InvalidAmount(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)

	_, err := svc.Consume(context.Background(), 1, 0, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Consume(context.Background(), 1, -4, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConsume_RaceLoserMapsToInsufficient(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1, SubscriptionCredits: 10, PurchasedCredits: 0}, nil)
	repo.On("Append", ctx, 1, mock.Anything).Return(nil, ledger.ErrNegativeBalance)

	_, err := svc.Consume(ctx, 1, 10, "journal export")
	assert.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestListTransactions_DefaultsPage(t *testing.T) {
	repo := new(MockLedgerRepo)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetOrCreateAccount", ctx, 1).Return(&ledger.Account{ID: 7, UserID: 1}, nil)
	repo.On("ListTransactions", ctx, 7, 1, 20, "").Return([]ledger.Transaction{{ID: 1}}, 1, nil)

	page, err := svc.ListTransactions(ctx, 1, 0, 20, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Transactions, 1)
}
