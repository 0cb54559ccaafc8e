package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
)

type fakeOrders struct {
	got  map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.resp, f.err
}

func TestRazorpayCreateOrder(t *testing.T) {
	orders := &fakeOrders{resp: map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(49900),
		"currency": "INR",
		"status":   "created",
	}}
	g := &RazorpayGateway{keyID: "rzp_test", keySecret: "secret", orders: orders}

	order, err := g.CreateOrder(context.Background(), 49900, "INR")
	require.NoError(t, err)

	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, int64(49900), orders.got["amount"])
	assert.Equal(t, "INR", orders.got["currency"])
	assert.Equal(t, 1, orders.got["payment_capture"])
	assert.Equal(t, "rzp_test", g.PublishableKey())
}

func TestRazorpayCreateOrderErrors(t *testing.T) {
	g := &RazorpayGateway{orders: &fakeOrders{err: errors.New("boom")}}
	_, err := g.CreateOrder(context.Background(), 100, "INR")
	assert.ErrorContains(t, err, "boom")

	g = &RazorpayGateway{orders: &fakeOrders{resp: map[string]interface{}{}}}
	_, err = g.CreateOrder(context.Background(), 100, "INR")
	assert.Error(t, err)
}

func TestRazorpayVerifySignature(t *testing.T) {
	g := &RazorpayGateway{keySecret: "secret"}
	good := Signature{OrderID: "order_1", PaymentID: "pay_1", Signature: Sign("order_1", "pay_1", "secret")}

	assert.NoError(t, g.VerifySignature(context.Background(), good))

	bad := good
	bad.Signature = Sign("order_1", "pay_1", "other")
	assert.ErrorIs(t, g.VerifySignature(context.Background(), bad), ErrSignatureMismatch)

	assert.ErrorIs(t, g.VerifySignature(context.Background(), Signature{OrderID: "order_1"}), ErrSignatureMismatch)
}

func TestSandboxGateway(t *testing.T) {
	g := NewSandboxGateway("s")

	order, err := g.CreateOrder(context.Background(), 1999, "INR")
	require.NoError(t, err)
	assert.Contains(t, order.ID, "order_")
	assert.Equal(t, int64(1999), order.Amount)

	_, err = g.CreateOrder(context.Background(), 0, "INR")
	assert.Error(t, err)

	sig := Signature{OrderID: order.ID, PaymentID: "pay_x", Signature: Sign(order.ID, "pay_x", "s")}
	assert.NoError(t, g.VerifySignature(context.Background(), sig))

	sig.PaymentID = "pay_y"
	assert.ErrorIs(t, g.VerifySignature(context.Background(), sig), ErrSignatureMismatch)
}

type fakeIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (f *fakeIntents) New(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.created = p
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: "pi_1", Amount: *p.Amount, Currency: stripe.Currency(*p.Currency), Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
}

func (f *fakeIntents) Get(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return f.intent, f.err
}

func TestStripeGateway(t *testing.T) {
	intents := &fakeIntents{}
	g := &StripeGateway{publishableKey: "pk_test", intents: intents}

	order, err := g.CreateOrder(context.Background(), 2500, "USD")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", order.ID)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "usd", *intents.created.Currency)

	intents.intent = &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, LatestCharge: &stripe.Charge{ID: "ch_1"}}
	assert.NoError(t, g.VerifySignature(context.Background(), Signature{OrderID: "pi_1", PaymentID: "ch_1"}))
	assert.ErrorIs(t, g.VerifySignature(context.Background(), Signature{OrderID: "pi_1", PaymentID: "ch_2"}), ErrSignatureMismatch)

	intents.intent = &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing}
	assert.ErrorIs(t, g.VerifySignature(context.Background(), Signature{OrderID: "pi_1"}), ErrSignatureMismatch)

	intents.err = errors.New("network")
	err = g.VerifySignature(context.Background(), Signature{OrderID: "pi_1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSignatureMismatch)
}
