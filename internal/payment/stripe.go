// internal/payment/stripe.go
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// intentClient is satisfied by paymentintent.Client.
type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway maps gateway orders onto PaymentIntents. Verification asks
// Stripe for the intent status instead of checking a client-side signature.
type StripeGateway struct {
	publishableKey string
	intents        intentClient
}

func NewStripeGateway(secretKey, publishableKey string) *StripeGateway {
	return &StripeGateway{
		publishableKey: publishableKey,
		intents: paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) PublishableKey() string { return g.publishableKey }

func (g *StripeGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*RemoteOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(strings.ToLower(currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return &RemoteOrder{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
		Status:   string(pi.Status),
	}, nil
}

func (g *StripeGateway) VerifySignature(ctx context.Context, sig Signature) error {
	if sig.OrderID == "" {
		return fmt.Errorf("%w: missing payment intent id", ErrSignatureMismatch)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(sig.OrderID, params)
	if err != nil {
		return fmt.Errorf("stripe: get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent is %s", ErrSignatureMismatch, pi.Status)
	}
	if sig.PaymentID != "" && pi.LatestCharge != nil && pi.LatestCharge.ID != sig.PaymentID {
		return fmt.Errorf("%w: charge %s does not belong to %s", ErrSignatureMismatch, sig.PaymentID, pi.ID)
	}
	return nil
}
