package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/payment"
	"github.com/javajoker/marketplace-backend/internal/store"
)

const testSecret = "test-secret"

type fakeGateway struct {
	*payment.SandboxGateway
	createErr error
	verifyErr error
	amounts   []int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{SandboxGateway: payment.NewSandboxGateway(testSecret)}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*payment.RemoteOrder, error) {
	g.amounts = append(g.amounts, amount)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.SandboxGateway.CreateOrder(ctx, amount, currency)
}

func (g *fakeGateway) VerifySignature(ctx context.Context, sig payment.Signature) error {
	if g.verifyErr != nil {
		return g.verifyErr
	}
	return g.SandboxGateway.VerifySignature(ctx, sig)
}

type memContent struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	saveErr error
}

func newMemContent() *memContent {
	return &memContent{files: map[string][]byte{}}
}

func (c *memContent) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[key]
	return ok, nil
}

func (c *memContent) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *memContent) Save(_ context.Context, key string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return "", c.saveErr
	}
	c.files[key] = data
	return key, nil
}

func (c *memContent) URL(key string) string {
	return "https://cdn.example.com/" + key
}

type fakeImages struct {
	data  []byte
	err   error
	calls []string
}

func (f *fakeImages) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	return f.data, f.err
}

type countingReceipts struct {
	mu    sync.Mutex
	calls int
	err   error
	st    store.Store
}

func (r *countingReceipts) Generate(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	key := ReceiptKey(order.ID)
	if r.st != nil {
		if err := r.st.Orders().SetReceipt(ctx, order.ID, key); err != nil {
			return err
		}
	}
	order.Receipt = key
	return nil
}

type published struct {
	eventType string
	key       string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType, key, payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

var errBoom = errors.New("boom")

func seedSeller(t *testing.T, st store.Store, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, u.SetPassword("password-123"))
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, st store.Store, sellerID uint, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{SellerID: sellerID, Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, st.Products().Create(context.Background(), p))
	return p
}
