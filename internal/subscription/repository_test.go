package subscription

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func subscriptionColumns() []string {
	return []string{"id", "account_id", "plan_id", "status", "current_period_end", "cancel_at_period_end", "created_at", "updated_at"}
}

func TestGetByAccount_NoSubscription(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_subscriptions")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()))

	_, err := repo.GetByAccount(context.Background(), 7)
	require.ErrorIs(t, err, ErrNoSubscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ClearsCancelFlag(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	periodEnd := time.Now().AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_subscriptions")).
		WithArgs(7, "pro", StatusActive, periodEnd).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(1, 7, "pro", "active", periodEnd, false, time.Now(), time.Now()))

	sub, err := repo.Upsert(context.Background(), 7, "pro", StatusActive, periodEnd)
	require.NoError(t, err)
	require.Equal(t, "pro", sub.PlanID)
	require.False(t, sub.CancelAtPeriodEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCancelAtPeriodEnd(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	periodEnd := time.Now().AddDate(0, 0, 12)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_subscriptions")).
		WithArgs(true, StatusCancelling, 7).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(1, 7, "pro", "cancelling", periodEnd, true, time.Now(), time.Now()))

	sub, err := repo.SetCancelAtPeriodEnd(context.Background(), 7, true)
	require.NoError(t, err)
	require.Equal(t, StatusCancelling, sub.Status)
	require.True(t, sub.CancelAtPeriodEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCancelAtPeriodEnd_NoActiveSubscription(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE user_subscriptions")).
		WithArgs(true, StatusCancelling, 7).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()))

	_, err := repo.SetCancelAtPeriodEnd(context.Background(), 7, true)
	require.ErrorIs(t, err, ErrNoSubscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDue(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("current_period_end <= $1")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(1, 7, "pro", "active", now.Add(-time.Hour), false, now, now).
			AddRow(2, 9, "starter", "cancelling", now.Add(-2*time.Hour), true, now, now))

	due, err := repo.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.True(t, due[1].CancelAtPeriodEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}
