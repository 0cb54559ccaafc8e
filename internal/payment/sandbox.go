// internal/payment/sandbox.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SandboxGateway creates orders locally and verifies signatures with the
// same HMAC scheme Razorpay uses, so the full flow runs without network.
type SandboxGateway struct {
	secret string
}

func NewSandboxGateway(secret string) *SandboxGateway {
	return &SandboxGateway{secret: secret}
}

func (g *SandboxGateway) Name() string { return "sandbox" }

func (g *SandboxGateway) PublishableKey() string { return "sandbox" }

func (g *SandboxGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("sandbox: amount must be positive, got %d", amount)
	}

	return &RemoteOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		Status:   "created",
	}, nil
}

func (g *SandboxGateway) VerifySignature(ctx context.Context, sig Signature) error {
	return verifyHMACSignature(sig, g.secret)
}

// Sign produces the signature the gateway would attach to a completed payment.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
