// internal/payment/gateway.go

// Package payment wraps the remote payment gateways behind a single interface.
package payment

import (
	"context"
	"errors"
)

// ErrSignatureMismatch means the gateway did not vouch for the payment.
var ErrSignatureMismatch = errors.New("payment signature verification failed")

// Signature is the payload the gateway hands to the client after payment.
type Signature struct {
	OrderID   string
	PaymentID string
	Signature string
}

// RemoteOrder is the gateway's view of a prospective charge.
type RemoteOrder struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Status   string
}

type Gateway interface {
	// Name identifies the provider, e.g. "razorpay".
	Name() string
	// PublishableKey is safe to hand to browsers.
	PublishableKey() string
	CreateOrder(ctx context.Context, amount int64, currency string) (*RemoteOrder, error)
	// VerifySignature returns ErrSignatureMismatch (possibly wrapped) for a
	// payload the gateway did not sign; any other error is a transport failure.
	VerifySignature(ctx context.Context, sig Signature) error
}
