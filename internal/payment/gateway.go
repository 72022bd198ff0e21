package payment

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrUnknownIntent      = errors.New("unknown payment intent")
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

type OrderRequest struct {
	AccountID   int
	Kind        IntentKind
	AmountCents int64
	Currency    string
	Description string
	// ProviderRef is the gateway-side id of the recurring plan, when the
	// order opens a subscription.
	ProviderRef string
}

type Order struct {
	Ref         string
	AmountCents int64
	Currency    string
	KeyID       string
	CheckoutURL string
}

// Gateway abstracts the external payment provider. Both the client-side
// confirmation and the out-of-band notification are verified through the
// same VerifySignature contract.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(gatewayRef string, accountID int, amountCents int64, signature string) error
}

// hmacGateway implements the order/signature flow: the provider echoes the
// order back with an HMAC over "ref|account|amount" that we can check
// offline.
type hmacGateway struct {
	keyID  string
	secret string
}

func NewHMACGateway(keyID, secret string) Gateway {
	return &hmacGateway{keyID: keyID, secret: secret}
}

// SignPayload computes the order confirmation signature. Exported so the
// webhook simulator and tests can produce valid confirmations.
func SignPayload(secret, gatewayRef string, accountID int, amountCents int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d|%d", gatewayRef, accountID, amountCents)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *hmacGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	return &Order{
		Ref:         "order_" + hex.EncodeToString(buf),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		KeyID:       g.keyID,
	}, nil
}

func (g *hmacGateway) VerifySignature(gatewayRef string, accountID int, amountCents int64, signature string) error {
	if signature == "" {
		return ErrSignatureMismatch
	}
	expected := SignPayload(g.secret, gatewayRef, accountID, amountCents)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
