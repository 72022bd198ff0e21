package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"craftlog/internal/catalog"
	"craftlog/internal/ledger"
	"craftlog/internal/logger"
	"craftlog/internal/metrics"
	"craftlog/internal/subscription"
)

var (
	ErrInactiveCatalogItem = errors.New("product or plan is not available for purchase")
	ErrFreePlanCheckout    = errors.New("the free plan cannot be purchased")
	ErrNotRefundable       = errors.New("payment is not refundable")
)

const (
	maxGatewayAttempts  = 3
	gatewayRetryBackoff = 200 * time.Millisecond

	claimResultAttempts = 5
	claimResultBackoff  = 50 * time.Millisecond
)

type Service interface {
	CreateTopUpIntent(ctx context.Context, userID int, productID string) (*CheckoutPayload, error)
	CreateSubscriptionIntent(ctx context.Context, userID int, planID string) (*CheckoutPayload, error)
	Verify(ctx context.Context, userID int, req VerifyRequest) (*VerificationResult, error)
	// VerifyByRef resolves the owner from the intent itself; used by gateway
	// webhooks, which know the order but not the session user.
	VerifyByRef(ctx context.Context, req VerifyRequest) (*VerificationResult, error)
	Refund(ctx context.Context, gatewayRef string) (*VerificationResult, error)
}

type service struct {
	intents     Repository
	ledgerRepo  ledger.Repository
	projector   *ledger.Projector
	catalogRepo catalog.Repository
	subs        subscription.Service
	gateway     Gateway
	currency    string
}

func NewService(
	intents Repository,
	ledgerRepo ledger.Repository,
	projector *ledger.Projector,
	catalogRepo catalog.Repository,
	subs subscription.Service,
	gateway Gateway,
	currency string,
) Service {
	return &service{
		intents:     intents,
		ledgerRepo:  ledgerRepo,
		projector:   projector,
		catalogRepo: catalogRepo,
		subs:        subs,
		gateway:     gateway,
		currency:    currency,
	}
}

func (s *service) CreateTopUpIntent(ctx context.Context, userID int, productID string) (*CheckoutPayload, error) {
	product, err := s.catalogRepo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrInactiveCatalogItem
	}

	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrderWithRetry(ctx, OrderRequest{
		AccountID:   a.ID,
		Kind:        KindTopUp,
		AmountCents: product.PriceCents,
		Currency:    s.currency,
		Description: fmt.Sprintf("%s (%d credits)", product.Name, product.Credits),
	})
	if err != nil {
		return nil, err
	}

	_, err = s.intents.Create(ctx, &PaymentIntent{
		GatewayRef:    order.Ref,
		AccountID:     a.ID,
		Kind:          KindTopUp,
		ProductID:     &product.ID,
		ExpectedCents: product.PriceCents,
		Credits:       product.Credits,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckout(string(KindTopUp))
	logger.Info("top-up checkout created",
		"user_id", userID,
		"product_id", product.ID,
		"gateway_ref", order.Ref,
	)

	return &CheckoutPayload{
		GatewayRef:  order.Ref,
		Kind:        KindTopUp,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		KeyID:       order.KeyID,
		CheckoutURL: order.CheckoutURL,
	}, nil
}

func (s *service) CreateSubscriptionIntent(ctx context.Context, userID int, planID string) (*CheckoutPayload, error) {
	plan, err := s.catalogRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.ID == catalog.FreePlanID {
		return nil, ErrFreePlanCheckout
	}
	if !plan.IsActive {
		return nil, ErrInactiveCatalogItem
	}

	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrderWithRetry(ctx, OrderRequest{
		AccountID:   a.ID,
		Kind:        KindSubscription,
		AmountCents: plan.PriceCents,
		Currency:    s.currency,
		Description: fmt.Sprintf("%s plan subscription", plan.DisplayName),
		ProviderRef: plan.ProviderPlanRef,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.intents.Create(ctx, &PaymentIntent{
		GatewayRef:    order.Ref,
		AccountID:     a.ID,
		Kind:          KindSubscription,
		PlanID:        &plan.ID,
		ExpectedCents: plan.PriceCents,
		Credits:       plan.MonthlyCredits,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckout(string(KindSubscription))
	logger.Info("subscription checkout created",
		"user_id", userID,
		"plan_id", plan.ID,
		"gateway_ref", order.Ref,
	)

	return &CheckoutPayload{
		GatewayRef:  order.Ref,
		Kind:        KindSubscription,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		KeyID:       order.KeyID,
		CheckoutURL: order.CheckoutURL,
	}, nil
}

func (s *service) createOrderWithRetry(ctx context.Context, req OrderRequest) (*Order, error) {
	backoff := gatewayRetryBackoff
	var lastErr error
	for attempt := 1; attempt <= maxGatewayAttempts; attempt++ {
		order, err := s.gateway.CreateOrder(ctx, req)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}

		lastErr = err
		logger.Warn("gateway order creation failed, retrying",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// Verify turns a gateway confirmation into exactly one committed ledger
// transaction. Both the client confirmation handler and the out-of-band
// webhook funnel into this entry point; duplicates collapse on the intent
// claim, and the ledger's external_ref uniqueness is the final backstop.
func (s *service) Verify(ctx context.Context, userID int, req VerifyRequest) (*VerificationResult, error) {
	intent, err := s.intents.GetByGatewayRef(ctx, req.GatewayRef)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			metrics.RecordPaymentVerification(string(req.Kind), "unknown_intent")
			return nil, ErrUnknownIntent
		}
		return nil, err
	}

	a, err := s.ledgerRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if intent.AccountID != a.ID || intent.Kind != req.Kind || !matchesCatalogItem(intent, req.ProductOrPlanID) {
		metrics.RecordPaymentVerification(string(req.Kind), "unknown_intent")
		return nil, ErrUnknownIntent
	}

	return s.verify(ctx, userID, intent, req)
}

func matchesCatalogItem(intent *PaymentIntent, id string) bool {
	if id == "" {
		return true
	}
	if intent.ProductID != nil && *intent.ProductID == id {
		return true
	}
	return intent.PlanID != nil && *intent.PlanID == id
}

func (s *service) VerifyByRef(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	intent, err := s.intents.GetByGatewayRef(ctx, req.GatewayRef)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			metrics.RecordPaymentVerification(string(req.Kind), "unknown_intent")
			return nil, ErrUnknownIntent
		}
		return nil, err
	}
	if intent.Kind != req.Kind {
		metrics.RecordPaymentVerification(string(req.Kind), "unknown_intent")
		return nil, ErrUnknownIntent
	}

	a, err := s.ledgerRepo.GetAccountByID(ctx, intent.AccountID)
	if err != nil {
		return nil, err
	}

	return s.verify(ctx, a.UserID, intent, req)
}

func (s *service) verify(ctx context.Context, userID int, intent *PaymentIntent, req VerifyRequest) (*VerificationResult, error) {
	if intent.Status == IntentFulfilled {
		return s.recordedResult(ctx, userID, intent)
	}

	// Signature check happens before the critical section; a forged or
	// corrupted confirmation leaves the intent pending so a legitimate
	// source can still verify it.
	if err := s.gateway.VerifySignature(intent.GatewayRef, intent.AccountID, intent.ExpectedCents, req.Signature); err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			metrics.RecordPaymentVerification(string(req.Kind), "bad_signature")
		}
		return nil, err
	}

	claimed, err := s.intents.ClaimPending(ctx, intent.GatewayRef)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.awaitClaimWinner(ctx, userID, intent.GatewayRef, req)
	}

	tx, sub, err := s.commit(ctx, userID, intent)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// The ledger already holds a transaction for this reference;
			// adopt it instead of double-crediting.
			existing, lookupErr := s.ledgerRepo.GetTransactionByExternalRef(ctx, intent.AccountID, intent.GatewayRef)
			if lookupErr != nil {
				return nil, lookupErr
			}
			tx = existing
		} else {
			// Let a later retry take the whole path again.
			if reopenErr := s.intents.Reopen(ctx, intent.GatewayRef); reopenErr != nil {
				logger.Error("failed to reopen payment intent after commit error",
					"gateway_ref", intent.GatewayRef,
					"error", reopenErr,
				)
			}
			return nil, err
		}
	}

	if err := s.intents.AttachTransaction(ctx, intent.GatewayRef, tx.ID); err != nil {
		logger.Error("failed to attach transaction to payment intent",
			"gateway_ref", intent.GatewayRef,
			"transaction_id", tx.ID,
			"error", err,
		)
	}

	s.projector.Invalidate(ctx, userID)
	balance, err := s.projector.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentVerification(string(intent.Kind), "ok")
	logger.Info("payment verified",
		"user_id", userID,
		"gateway_ref", intent.GatewayRef,
		"kind", intent.Kind,
		"transaction_id", tx.ID,
	)

	return &VerificationResult{
		GatewayRef:    intent.GatewayRef,
		TransactionID: tx.ID,
		Credits:       intent.Credits,
		AmountCents:   intent.ExpectedCents,
		Balance:       balance,
		Subscription:  sub,
	}, nil
}

// awaitClaimWinner handles the loser of the claim race. The winner attaches
// its transaction id right after the append, so poll briefly rather than
// echoing a pre-commit snapshot with no transaction id.
func (s *service) awaitClaimWinner(ctx context.Context, userID int, gatewayRef string, req VerifyRequest) (*VerificationResult, error) {
	for attempt := 0; attempt < claimResultAttempts; attempt++ {
		refreshed, err := s.intents.GetByGatewayRef(ctx, gatewayRef)
		if err != nil {
			return nil, err
		}
		if refreshed.Status == IntentPending {
			// The winner hit a transient failure and reopened the intent;
			// take the whole path again.
			return s.verify(ctx, userID, refreshed, req)
		}
		if refreshed.TransactionID != nil {
			return s.recordedResult(ctx, userID, refreshed)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(claimResultBackoff):
		}
	}

	refreshed, err := s.intents.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return nil, err
	}
	return s.recordedResult(ctx, userID, refreshed)
}

func (s *service) commit(ctx context.Context, userID int, intent *PaymentIntent) (*ledger.Transaction, *subscription.UserSubscription, error) {
	switch intent.Kind {
	case KindSubscription:
		result, err := s.subs.ActivateWithRef(ctx, userID, *intent.PlanID, intent.GatewayRef)
		if err != nil {
			return nil, nil, err
		}
		if result.Transaction == nil {
			return nil, nil, ledger.ErrDuplicateReference
		}
		return result.Transaction, result.Subscription, nil
	default:
		ref := intent.GatewayRef
		description := "credit top-up"
		if intent.ProductID != nil {
			description = fmt.Sprintf("credit top-up (%s)", *intent.ProductID)
		}
		txs, err := s.ledgerRepo.Append(ctx, userID, []ledger.Entry{{
			Type:        ledger.TypePurchase,
			Pool:        ledger.PoolPurchased,
			Amount:      intent.Credits,
			Description: description,
			ExternalRef: &ref,
		}})
		if err != nil {
			return nil, nil, err
		}
		return &txs[0], nil, nil
	}
}

func (s *service) recordedResult(ctx context.Context, userID int, intent *PaymentIntent) (*VerificationResult, error) {
	balance, err := s.projector.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		GatewayRef:       intent.GatewayRef,
		Credits:          intent.Credits,
		AmountCents:      intent.ExpectedCents,
		Balance:          balance,
		AlreadyProcessed: true,
	}
	if intent.TransactionID != nil {
		result.TransactionID = *intent.TransactionID
	}

	metrics.RecordPaymentVerification(string(intent.Kind), "duplicate")
	return result, nil
}

// Refund reverses a fulfilled top-up by appending a compensating refund
// transaction. Idempotent via the derived external ref; fails if the
// purchased credits were already consumed.
func (s *service) Refund(ctx context.Context, gatewayRef string) (*VerificationResult, error) {
	intent, err := s.intents.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return nil, ErrUnknownIntent
		}
		return nil, err
	}
	if intent.Kind != KindTopUp || intent.Status != IntentFulfilled {
		return nil, ErrNotRefundable
	}

	a, err := s.ledgerRepo.GetAccountByID(ctx, intent.AccountID)
	if err != nil {
		return nil, err
	}

	ref := "refund:" + gatewayRef
	txs, err := s.ledgerRepo.Append(ctx, a.UserID, []ledger.Entry{{
		Type:        ledger.TypeRefund,
		Pool:        ledger.PoolPurchased,
		Amount:      -intent.Credits,
		Description: fmt.Sprintf("refund of %s", gatewayRef),
		ExternalRef: &ref,
	}})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			existing, lookupErr := s.ledgerRepo.GetTransactionByExternalRef(ctx, a.ID, ref)
			if lookupErr != nil {
				return nil, lookupErr
			}
			balance, balErr := s.projector.Balance(ctx, a.UserID)
			if balErr != nil {
				return nil, balErr
			}
			return &VerificationResult{
				GatewayRef:       gatewayRef,
				TransactionID:    existing.ID,
				Credits:          intent.Credits,
				AmountCents:      intent.ExpectedCents,
				Balance:          balance,
				AlreadyProcessed: true,
			}, nil
		}
		return nil, err
	}

	s.projector.Invalidate(ctx, a.UserID)
	balance, err := s.projector.Balance(ctx, a.UserID)
	if err != nil {
		return nil, err
	}

	metrics.RecordRefund()
	logger.Info("refund applied",
		"gateway_ref", gatewayRef,
		"account_id", a.ID,
		"credits", intent.Credits,
	)

	return &VerificationResult{
		GatewayRef:    gatewayRef,
		TransactionID: txs[0].ID,
		Credits:       intent.Credits,
		AmountCents:   intent.ExpectedCents,
		Balance:       balance,
	}, nil
}
