package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"craftlog/internal/catalog"
	"craftlog/internal/email"
)

type MockService struct{ mock.Mock }

func (m *MockService) Current(ctx context.Context, userID int) (*UserSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserSubscription), args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context, userID int, planID string) (*ActivationResult, error) {
	args := m.Called(ctx, userID, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ActivationResult), args.Error(1)
}

func (m *MockService) ActivateWithRef(ctx context.Context, userID int, planID, externalRef string) (*ActivationResult, error) {
	args := m.Called(ctx, userID, planID, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ActivationResult), args.Error(1)
}

func (m *MockService) Cancel(ctx context.Context, userID int) (*UserSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserSubscription), args.Error(1)
}

func (m *MockService) RunRenewals(ctx context.Context) (*RenewalStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenewalStats), args.Error(1)
}

func setupSubscriptionRouter(svc Service, emails *email.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlerWithService(svc, emails)

	r := gin.New()
	authed := r.Group("/billing")
	authed.Use(func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Set("user_email", "writer@example.com")
		c.Next()
	})
	authed.GET("/subscription", h.GetSubscription)
	authed.POST("/cancel-subscription", h.CancelSubscription)
	return r
}

func TestCancelSubscriptionEndpoint_QueuesCancellationNotice(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	emails := email.NewWithClient(rdb, "billing@craftlog.app", "CraftLog", "smtp.test.com", "587", "", "")
	redisMock.Regexp().ExpectLPush("billing:emails", `.*cancellation.*`).SetVal(1)

	svc := new(MockService)
	svc.On("Cancel", mock.Anything, 1).Return(&UserSubscription{
		ID: 1, AccountID: 7, PlanID: "pro", Status: StatusCancelling,
		CurrentPeriodEnd:  time.Now().AddDate(0, 0, 12),
		CancelAtPeriodEnd: true,
		Plan:              &catalog.SubscriptionPlan{ID: "pro", DisplayName: "Professional", MonthlyCredits: 500},
	}, nil)

	r := setupSubscriptionRouter(svc, emails)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/billing/cancel-subscription", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, redisMock.ExpectationsWereMet())
	svc.AssertExpectations(t)
}

func TestCancelSubscriptionEndpoint_QueueFailureStillSucceeds(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	emails := email.NewWithClient(rdb, "billing@craftlog.app", "CraftLog", "smtp.test.com", "587", "", "")
	redisMock.Regexp().ExpectLPush("billing:emails", `.*`).SetErr(assert.AnError)

	svc := new(MockService)
	svc.On("Cancel", mock.Anything, 1).Return(&UserSubscription{
		ID: 1, AccountID: 7, PlanID: "pro", Status: StatusCancelling,
		CurrentPeriodEnd: time.Now().AddDate(0, 0, 12),
	}, nil)

	r := setupSubscriptionRouter(svc, emails)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/billing/cancel-subscription", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelSubscriptionEndpoint_NoSubscription(t *testing.T) {
	svc := new(MockService)
	svc.On("Cancel", mock.Anything, 1).Return(nil, ErrNoSubscription)

	r := setupSubscriptionRouter(svc, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/billing/cancel-subscription", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
