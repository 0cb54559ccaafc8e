package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/javajoker/marketplace-backend/internal/cache"
	"github.com/javajoker/marketplace-backend/internal/events"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/payment"
	"github.com/javajoker/marketplace-backend/internal/store"
)

type PaymentServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.MemoryStore
	gateway   *fakeGateway
	receipts  *countingReceipts
	publisher *recordingPublisher
	service   *PaymentService
	product   *models.Product
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemoryStore()
	s.gateway = newFakeGateway()
	s.receipts = &countingReceipts{st: s.store}
	s.publisher = &recordingPublisher{}
	s.service = NewPaymentService(s.store, s.gateway, s.receipts, cache.NewLocalLocker(time.Minute), s.publisher, "INR")

	seller := seedSeller(s.T(), s.store, "seller")
	s.product = seedProduct(s.T(), s.store, seller.ID, "Mug", "499.00")
}

func (s *PaymentServiceTestSuite) checkout() *CheckoutResult {
	res, err := s.service.Checkout(s.ctx, s.product.ID, &CheckoutRequest{Email: "buyer@example.com"})
	s.Require().NoError(err)
	return res
}

func (s *PaymentServiceTestSuite) signed(gatewayOrderID, paymentID string) *VerifyRequest {
	return &VerifyRequest{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        payment.Sign(gatewayOrderID, paymentID, testSecret),
	}
}

func (s *PaymentServiceTestSuite) reloadProduct() *models.Product {
	p, err := s.store.Products().Get(s.ctx, s.product.ID)
	s.Require().NoError(err)
	return p
}

func (s *PaymentServiceTestSuite) TestCheckoutCreatesPendingOrder() {
	res := s.checkout()

	s.Equal([]int64{49900}, s.gateway.amounts)
	s.Equal(int64(49900), res.Amount)
	s.Equal("INR", res.Currency)

	order, err := s.store.Orders().GetByGatewayOrderID(s.ctx, res.GatewayOrderID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, order.Status)
	s.True(order.Amount.Equal(s.product.Price))
	s.Equal("buyer@example.com", order.CustomerEmail)
	s.False(order.HasPaid)
}

func (s *PaymentServiceTestSuite) TestCheckoutSnapshotsPrice() {
	res := s.checkout()

	p := s.reloadProduct()
	p.Price = p.Price.Add(p.Price)
	s.Require().NoError(s.store.Products().Update(s.ctx, p))

	order, _ := s.store.Orders().GetByGatewayOrderID(s.ctx, res.GatewayOrderID)
	s.Equal("499", order.Amount.String())
}

func (s *PaymentServiceTestSuite) TestCheckoutErrors() {
	_, err := s.service.Checkout(s.ctx, 999, &CheckoutRequest{Email: "buyer@example.com"})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.service.Checkout(s.ctx, s.product.ID, &CheckoutRequest{Email: "not-an-email"})
	s.ErrorIs(err, ErrValidation)

	s.gateway.createErr = errBoom
	_, err = s.service.Checkout(s.ctx, s.product.ID, &CheckoutRequest{Email: "buyer@example.com"})
	s.ErrorIs(err, ErrGateway)
}

func (s *PaymentServiceTestSuite) TestVerifyMarksPaidOnce() {
	res := s.checkout()

	out, err := s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.Require().NoError(err)
	s.Equal(res.Order.ID, out.OrderID)
	s.False(out.Replayed)

	order, _ := s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusPaid, order.Status)
	s.True(order.HasPaid)
	s.Equal("pay_1", order.GatewayPaymentID)
	s.Equal(ReceiptKey(order.ID), order.Receipt)

	p := s.reloadProduct()
	s.Equal(int64(1), p.TotalSales)
	s.Equal(int64(499), p.TotalSalesAmount)

	out, err = s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.Require().NoError(err)
	s.True(out.Replayed)

	p = s.reloadProduct()
	s.Equal(int64(1), p.TotalSales)
	s.Equal(int64(499), p.TotalSalesAmount)
	s.Equal(1, s.receipts.calls)
	s.Equal([]string{events.EventOrderPaid}, s.publisher.types())
}

func (s *PaymentServiceTestSuite) TestVerifyConcurrentCallsCountOnce() {
	res := s.checkout()
	s.service.locker = cache.NewLocalLocker(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
		}()
	}
	wg.Wait()

	p := s.reloadProduct()
	s.Equal(int64(1), p.TotalSales)
	s.Equal(int64(499), p.TotalSalesAmount)
}

func (s *PaymentServiceTestSuite) TestVerifyBadSignatureMarksFailed() {
	res := s.checkout()

	req := s.signed(res.GatewayOrderID, "pay_1")
	req.Signature = "forged"
	_, err := s.service.Verify(s.ctx, req)
	s.ErrorIs(err, ErrSignatureInvalid)

	order, _ := s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusFailed, order.Status)
	s.False(order.HasPaid)
	s.Equal(int64(0), s.reloadProduct().TotalSales)
	s.Equal(0, s.receipts.calls)
	s.Equal([]string{events.EventOrderFailed}, s.publisher.types())

	// A valid signature cannot resurrect a failed order.
	_, err = s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.ErrorIs(err, ErrConflict)
	order, _ = s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusFailed, order.Status)
}

func (s *PaymentServiceTestSuite) TestVerifyBadSignatureNeverUnpays() {
	res := s.checkout()
	_, err := s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.Require().NoError(err)

	req := s.signed(res.GatewayOrderID, "pay_1")
	req.Signature = "forged"
	_, err = s.service.Verify(s.ctx, req)
	s.ErrorIs(err, ErrSignatureInvalid)

	order, _ := s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusPaid, order.Status)
}

func (s *PaymentServiceTestSuite) TestVerifyBadSignatureUnknownOrder() {
	req := s.signed("order_unknown", "pay_1")
	req.Signature = "forged"
	_, err := s.service.Verify(s.ctx, req)
	s.ErrorIs(err, ErrSignatureInvalid)
}

func (s *PaymentServiceTestSuite) TestVerifyUnknownOrder() {
	_, err := s.service.Verify(s.ctx, s.signed("order_unknown", "pay_1"))
	s.ErrorIs(err, ErrNotFound)
}

func (s *PaymentServiceTestSuite) TestVerifyGatewayTransportError() {
	res := s.checkout()
	s.gateway.verifyErr = errBoom

	_, err := s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.ErrorIs(err, errBoom)
	s.NotErrorIs(err, ErrSignatureInvalid)

	order, _ := s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusPending, order.Status)
}

func (s *PaymentServiceTestSuite) TestVerifyReceiptFailureKeepsPaid() {
	res := s.checkout()
	s.receipts.err = fmt.Errorf("%w: disk full", ErrStorage)

	out, err := s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	var receiptErr *ReceiptError
	s.Require().True(errors.As(err, &receiptErr))
	s.Equal(res.Order.ID, receiptErr.OrderID)
	s.ErrorIs(err, ErrStorage)
	s.NotNil(out)

	order, _ := s.store.Orders().Get(s.ctx, res.Order.ID)
	s.Equal(models.OrderStatusPaid, order.Status)
	s.Empty(order.Receipt)
	s.Equal(int64(1), s.reloadProduct().TotalSales)
	s.Equal([]string{events.EventOrderPaid, events.EventReceiptFailed}, s.publisher.types())

	// A replay retries the receipt without touching aggregates.
	s.receipts.err = nil
	_, err = s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.NoError(err)
	s.Equal(int64(1), s.reloadProduct().TotalSales)
	s.Equal(2, s.receipts.calls)
}

func (s *PaymentServiceTestSuite) TestVerifySkipsReceiptWhenPresent() {
	res := s.checkout()
	s.Require().NoError(s.store.Orders().SetReceipt(s.ctx, res.Order.ID, "receipts/old.pdf"))

	_, err := s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.NoError(err)
	s.Equal(0, s.receipts.calls)
}

func (s *PaymentServiceTestSuite) TestVerifyRejectsWhileLocked() {
	res := s.checkout()
	locker := cache.NewLocalLocker(time.Minute)
	s.service.locker = locker

	release, err := locker.Acquire(s.ctx, cache.VerifyKey(res.GatewayOrderID))
	s.Require().NoError(err)
	defer release()

	_, err = s.service.Verify(s.ctx, s.signed(res.GatewayOrderID, "pay_1"))
	s.ErrorIs(err, ErrConflict)
}

func (s *PaymentServiceTestSuite) TestVerifyBadSignatureDoesNotTakeLock() {
	res := s.checkout()
	locker := cache.NewLocalLocker(time.Minute)
	s.service.locker = locker

	_, err := s.service.Verify(s.ctx, &VerifyRequest{
		GatewayOrderID:   "order_forged",
		GatewayPaymentID: "pay_x",
		Signature:        "deadbeef",
	})
	s.ErrorIs(err, ErrSignatureInvalid)

	release, err := locker.Acquire(s.ctx, cache.VerifyKey("order_forged"))
	s.Require().NoError(err)
	release()

	// A forged payload for a real order while a genuine verification holds
	// the lock is still rejected as a bad signature, not a conflict.
	release, err = locker.Acquire(s.ctx, cache.VerifyKey(res.GatewayOrderID))
	s.Require().NoError(err)
	defer release()

	_, err = s.service.Verify(s.ctx, &VerifyRequest{
		GatewayOrderID:   res.GatewayOrderID,
		GatewayPaymentID: "pay_x",
		Signature:        "deadbeef",
	})
	s.ErrorIs(err, ErrSignatureInvalid)
}

func (s *PaymentServiceTestSuite) TestVerifyValidation() {
	_, err := s.service.Verify(s.ctx, &VerifyRequest{GatewayOrderID: "order_1"})
	s.ErrorIs(err, ErrValidation)
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}
