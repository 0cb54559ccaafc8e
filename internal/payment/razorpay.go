// internal/payment/razorpay.go
package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// orderCreator is satisfied by the SDK's *resources.Order.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	keyID     string
	keySecret string
	orders    orderCreator
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		orders:    client.Order,
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

func (g *RazorpayGateway) PublishableKey() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := g.orders.Create(map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay: create order: response has no id")
	}

	order := &RemoteOrder{
		ID:       id,
		Amount:   amount,
		Currency: currency,
	}
	if v, ok := body["amount"].(float64); ok {
		order.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok {
		order.Currency = v
	}
	if v, ok := body["status"].(string); ok {
		order.Status = v
	}
	return order, nil
}

func (g *RazorpayGateway) VerifySignature(ctx context.Context, sig Signature) error {
	return verifyHMACSignature(sig, g.keySecret)
}

// verifyHMACSignature checks sig against HMAC-SHA256("order_id|payment_id").
func verifyHMACSignature(sig Signature, secret string) error {
	if sig.OrderID == "" || sig.PaymentID == "" || sig.Signature == "" {
		return fmt.Errorf("%w: incomplete payload", ErrSignatureMismatch)
	}

	params := map[string]interface{}{
		"razorpay_order_id":   sig.OrderID,
		"razorpay_payment_id": sig.PaymentID,
	}
	if !utils.VerifyPaymentSignature(params, sig.Signature, secret) {
		return ErrSignatureMismatch
	}
	return nil
}
