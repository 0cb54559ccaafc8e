package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/cache"
	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/events"
)

func TestNewGateway(t *testing.T) {
	for provider, name := range map[string]string{
		"razorpay": "razorpay",
		"stripe":   "stripe",
		"sandbox":  "sandbox",
	} {
		g, err := NewGateway(config.PaymentConfig{
			Provider:          provider,
			RazorpayKeyID:     "rzp_test",
			RazorpayKeySecret: "secret",
			StripeSecretKey:   "sk_test",
			SandboxSecret:     "secret",
		})
		require.NoError(t, err, provider)
		assert.Equal(t, name, g.Name())
	}

	_, err := NewGateway(config.PaymentConfig{Provider: "paypal"})
	assert.Error(t, err)
}

func TestNewInMemory(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "memory"},
		Payment:  config.PaymentConfig{Provider: "sandbox", SandboxSecret: "s", Currency: "INR"},
		Storage:  config.StorageConfig{Driver: "local", LocalRoot: t.TempDir(), LocalURL: "http://localhost/media"},
		Redis:    config.RedisConfig{LockTTL: time.Second},
		Receipt:  config.ReceiptConfig{ImageFetchTimeout: time.Second},
	}

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.LocalLocker{}, a.Locker)
	assert.IsType(t, events.NoopPublisher{}, a.Publisher)

	svc := a.Services()
	assert.NotNil(t, svc.Payments)
	assert.Equal(t, "sandbox", svc.Payments.PublishableKey())
}
