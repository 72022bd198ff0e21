package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"craftlog/internal/catalog"
	"craftlog/internal/ledger"
	"craftlog/internal/logger"
	"craftlog/internal/metrics"
)

var (
	ErrPlanInactive = errors.New("subscription plan is not available")
)

type ActivationResult struct {
	Subscription *UserSubscription   `json:"subscription"`
	Transaction  *ledger.Transaction `json:"transaction,omitempty"`
	Balance      *ledger.Balance     `json:"balance"`
}

type RenewalStats struct {
	Renewed int `json:"renewed"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

type Service interface {
	Current(ctx context.Context, userID int) (*UserSubscription, error)
	Subscribe(ctx context.Context, userID int, planID string) (*ActivationResult, error)
	ActivateWithRef(ctx context.Context, userID int, planID, externalRef string) (*ActivationResult, error)
	Cancel(ctx context.Context, userID int) (*UserSubscription, error)
	RunRenewals(ctx context.Context) (*RenewalStats, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	ledgerRepo  ledger.Repository
	projector   *ledger.Projector
}

func NewService(repo Repository, catalogRepo catalog.Repository, ledgerRepo ledger.Repository, projector *ledger.Projector) Service {
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		ledgerRepo:  ledgerRepo,
		projector:   projector,
	}
}

func allocationRef(accountID int, periodEnd time.Time) string {
	return fmt.Sprintf("alloc:%d:%d", accountID, periodEnd.Unix())
}

func expiryRef(accountID int, periodEnd time.Time) string {
	return fmt.Sprintf("expire:%d:%d", accountID, periodEnd.Unix())
}

func (s *service) Current(ctx context.Context, userID int) (*UserSubscription, error) {
	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByAccount(ctx, a.ID)
	if errors.Is(err, ErrNoSubscription) {
		free, err := s.catalogRepo.GetPlan(ctx, catalog.FreePlanID)
		if err != nil {
			return nil, err
		}
		return &UserSubscription{
			AccountID: a.ID,
			PlanID:    catalog.FreePlanID,
			Status:    StatusNone,
			Plan:      free,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	sub.Plan, err = s.catalogRepo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) Subscribe(ctx context.Context, userID int, planID string) (*ActivationResult, error) {
	return s.ActivateWithRef(ctx, userID, planID, "")
}

// ActivateWithRef assigns the plan and resets the subscription pool to the
// plan's monthly credits. Unused subscription credits are forfeited;
// purchased credits are never touched. When externalRef is empty the
// per-account-per-period allocation key makes retries idempotent.
func (s *service) ActivateWithRef(ctx context.Context, userID int, planID, externalRef string) (*ActivationResult, error) {
	plan, err := s.catalogRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	periodEnd := time.Now().AddDate(0, 1, 0)
	return s.allocate(ctx, userID, a, plan, periodEnd, externalRef, StatusActive)
}

func (s *service) allocate(ctx context.Context, userID int, a *ledger.Account, plan *catalog.SubscriptionPlan, periodEnd time.Time, externalRef string, status Status) (*ActivationResult, error) {
	ref := externalRef
	if ref == "" {
		ref = allocationRef(a.ID, periodEnd)
	}

	// The allocation is a reset, not a top-up: the ledger computes the delta
	// to plan.MonthlyCredits under the account row lock, so a consume racing
	// this call cannot leave the pool short.
	target := plan.MonthlyCredits

	var allocation *ledger.Transaction
	txs, err := s.ledgerRepo.Append(ctx, userID, []ledger.Entry{{
		Type:        ledger.TypeSubscriptionAllocation,
		Pool:        ledger.PoolSubscription,
		ResetTo:     &target,
		Description: fmt.Sprintf("monthly allocation for plan %s", plan.ID),
		ExternalRef: &ref,
	}})
	switch {
	case err == nil:
		allocation = &txs[0]
		s.projector.Invalidate(ctx, userID)
	case errors.Is(err, ledger.ErrDuplicateReference):
		// Allocation for this period (or payment) already applied; the
		// re-invocation only needs to settle the subscription row.
		existing, lookupErr := s.ledgerRepo.GetTransactionByExternalRef(ctx, a.ID, ref)
		if lookupErr == nil {
			allocation = existing
		}
	default:
		return nil, err
	}

	sub, err := s.repo.Upsert(ctx, a.ID, plan.ID, status, periodEnd)
	if err != nil {
		return nil, err
	}
	sub.Plan = plan

	balance, err := s.projector.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	logger.Info("subscription allocated",
		"user_id", userID,
		"plan", plan.ID,
		"period_end", periodEnd,
		"external_ref", ref,
	)

	return &ActivationResult{
		Subscription: sub,
		Transaction:  allocation,
		Balance:      balance,
	}, nil
}

// Cancel flags the subscription to lapse at period end. Credits and plan
// remain usable until then; calling Subscribe again before the period ends
// reverses it.
func (s *service) Cancel(ctx context.Context, userID int) (*UserSubscription, error) {
	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.SetCancelAtPeriodEnd(ctx, a.ID, true)
	if err != nil {
		return nil, err
	}

	sub.Plan, err = s.catalogRepo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	logger.Info("subscription cancellation scheduled",
		"user_id", userID,
		"plan", sub.PlanID,
		"period_end", sub.CurrentPeriodEnd,
	)

	return sub, nil
}

// RunRenewals processes every subscription whose period has ended: renews
// unless cancellation was requested, otherwise expires it down to the free
// plan. Safe to re-invoke; allocation and expiry refs are per-period.
func (s *service) RunRenewals(ctx context.Context) (*RenewalStats, error) {
	due, err := s.repo.ListDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	stats := &RenewalStats{}
	for _, sub := range due {
		if sub.CancelAtPeriodEnd {
			if err := s.expire(ctx, sub); err != nil {
				logger.Error("subscription expiry failed", "account_id", sub.AccountID, "error", err)
				stats.Failed++
				metrics.RecordRenewal("failed")
				continue
			}
			stats.Expired++
			metrics.RecordRenewal("expired")
			continue
		}

		if err := s.renew(ctx, sub); err != nil {
			logger.Error("subscription renewal failed", "account_id", sub.AccountID, "error", err)
			stats.Failed++
			metrics.RecordRenewal("failed")
			continue
		}
		stats.Renewed++
		metrics.RecordRenewal("renewed")
	}

	return stats, nil
}

func (s *service) renew(ctx context.Context, sub UserSubscription) error {
	a, err := s.ledgerRepo.GetAccountByID(ctx, sub.AccountID)
	if err != nil {
		return err
	}

	plan, err := s.catalogRepo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	newPeriodEnd := sub.CurrentPeriodEnd.AddDate(0, 1, 0)
	_, err = s.allocate(ctx, a.UserID, a, plan, newPeriodEnd, "", StatusActive)
	return err
}

func (s *service) expire(ctx context.Context, sub UserSubscription) error {
	a, err := s.ledgerRepo.GetAccountByID(ctx, sub.AccountID)
	if err != nil {
		return err
	}

	// Drain whatever the pool holds at commit time; a consume racing the
	// expiry must not make the drain overshoot or fall short.
	var drained int64

	ref := expiryRef(a.ID, sub.CurrentPeriodEnd)
	_, err = s.ledgerRepo.Append(ctx, a.UserID, []ledger.Entry{{
		Type:        ledger.TypeExpiry,
		Pool:        ledger.PoolSubscription,
		ResetTo:     &drained,
		Description: "subscription expired; remaining cycle credits forfeited",
		ExternalRef: &ref,
	}})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		return err
	}
	if err == nil {
		s.projector.Invalidate(ctx, a.UserID)
	}

	if _, err := s.repo.Upsert(ctx, a.ID, catalog.FreePlanID, StatusExpired, sub.CurrentPeriodEnd); err != nil {
		return err
	}

	logger.Info("subscription expired",
		"account_id", a.ID,
		"period_end", sub.CurrentPeriodEnd,
	)
	return nil
}
