// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/cache"
	"github.com/javajoker/marketplace-backend/internal/events"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/payment"
	"github.com/javajoker/marketplace-backend/internal/store"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type PaymentService struct {
	store    store.Store
	gateway  payment.Gateway
	receipts ReceiptGenerator
	locker   cache.Locker
	events   events.Publisher
	currency string
}

type CheckoutRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type CheckoutResult struct {
	Order          *models.Order
	GatewayOrderID string
	// Amount is what the gateway will charge, in minor units.
	Amount   int64
	Currency string
	KeyID    string
}

type VerifyRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" form:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" form:"razorpay_signature" validate:"required"`
}

type VerifyResult struct {
	OrderID        uint
	GatewayOrderID string
	// Replayed is set when the order was already PAID before this call.
	Replayed bool
}

func NewPaymentService(st store.Store, gateway payment.Gateway, receipts ReceiptGenerator, locker cache.Locker, publisher events.Publisher, currency string) *PaymentService {
	return &PaymentService{
		store:    st,
		gateway:  gateway,
		receipts: receipts,
		locker:   locker,
		events:   publisher,
		currency: currency,
	}
}

func (s *PaymentService) PublishableKey() string {
	return s.gateway.PublishableKey()
}

// Checkout opens a gateway order for the product and records it as PENDING.
func (s *PaymentService) Checkout(ctx context.Context, productID uint, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	product, err := s.store.Products().Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	remote, err := s.gateway.CreateOrder(ctx, product.MinorUnits(), s.currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	order := &models.Order{
		CustomerEmail:  req.Email,
		ProductID:      product.ID,
		Amount:         product.Price,
		GatewayOrderID: remote.ID,
		Status:         models.OrderStatusPending,
	}
	if err := s.store.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"gateway_order_id": remote.ID,
		"product_id":       product.ID,
		"amount":           remote.Amount,
	}).Info("Checkout session created")

	return &CheckoutResult{
		Order:          order,
		GatewayOrderID: remote.ID,
		Amount:         remote.Amount,
		Currency:       remote.Currency,
		KeyID:          s.gateway.PublishableKey(),
	}, nil
}

// Verify checks the gateway signature and settles the order. A valid
// signature moves a PENDING order to PAID and bumps the product aggregates
// exactly once, then makes sure a receipt exists. An invalid one moves a
// PENDING order to FAILED.
func (s *PaymentService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	log := logrus.WithField("gateway_order_id", req.GatewayOrderID)

	// Signatures are checked before locking; markFailed relies on the
	// PENDING guard alone.
	sigErr := s.gateway.VerifySignature(ctx, payment.Signature{
		OrderID:   req.GatewayOrderID,
		PaymentID: req.GatewayPaymentID,
		Signature: req.Signature,
	})
	if sigErr != nil {
		if !errors.Is(sigErr, payment.ErrSignatureMismatch) {
			return nil, fmt.Errorf("failed to verify signature: %w", sigErr)
		}
		log.WithError(sigErr).Warn("Payment signature rejected")
		s.markFailed(ctx, req.GatewayOrderID)
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, sigErr)
	}

	release, err := s.locker.Acquire(ctx, cache.VerifyKey(req.GatewayOrderID))
	switch {
	case errors.Is(err, cache.ErrLocked):
		return nil, fmt.Errorf("%w: verification already in progress", ErrConflict)
	case err != nil:
		// The guarded transition below still prevents double counting.
		log.WithError(err).Warn("Verification lock unavailable, continuing without it")
	default:
		defer release()
	}

	order, err := s.store.Orders().GetByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, req.GatewayOrderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	result := &VerifyResult{OrderID: order.ID, GatewayOrderID: order.GatewayOrderID}

	switch order.Status {
	case models.OrderStatusPaid:
		result.Replayed = true
	case models.OrderStatusFailed:
		return nil, fmt.Errorf("%w: order %d already failed", ErrConflict, order.ID)
	default:
		won, err := s.markPaid(ctx, order, req.GatewayPaymentID)
		if err != nil {
			return nil, err
		}
		if !won {
			// Someone else settled it between our read and the update.
			if order, err = s.store.Orders().Get(ctx, order.ID); err != nil {
				return nil, fmt.Errorf("failed to reload order: %w", err)
			}
			if order.Status != models.OrderStatusPaid {
				return nil, fmt.Errorf("%w: order %d is %s", ErrConflict, order.ID, order.Status)
			}
			result.Replayed = true
		}
	}

	if order.HasReceipt() {
		return result, nil
	}

	if err := s.receipts.Generate(ctx, order); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("Receipt generation failed for paid order")
		s.publish(ctx, events.EventReceiptFailed, order.GatewayOrderID, events.ReceiptFailedPayload{
			OrderID: order.ID,
			Error:   err.Error(),
		})
		return result, &ReceiptError{OrderID: order.ID, Err: err}
	}
	return result, nil
}

// markPaid flips the order to PAID and bumps the aggregates in one
// transaction. It reports false when the order was no longer PENDING.
func (s *PaymentService) markPaid(ctx context.Context, order *models.Order, paymentID string) (bool, error) {
	won := false
	err := s.store.WithinTransaction(ctx, func(tx store.Store) error {
		moved, err := tx.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid, paymentID)
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		if !moved {
			return nil
		}
		if err := tx.Products().IncrementSales(ctx, order.ProductID, order.Amount.IntPart()); err != nil {
			return fmt.Errorf("failed to update product sales: %w", err)
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	order.Status = models.OrderStatusPaid
	order.HasPaid = true
	order.GatewayPaymentID = paymentID

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"amount":     order.Amount.String(),
	}).Info("Order paid")

	s.publish(ctx, events.EventOrderPaid, order.GatewayOrderID, orderPayload(order))
	return true, nil
}

// markFailed moves a PENDING order to FAILED. Errors are logged only; the
// caller already has a signature failure to report.
func (s *PaymentService) markFailed(ctx context.Context, gatewayOrderID string) {
	log := logrus.WithField("gateway_order_id", gatewayOrderID)

	order, err := s.store.Orders().GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("Failed to load order for failure update")
		}
		return
	}
	if !models.CanTransition(order.Status, models.OrderStatusFailed) {
		return
	}

	moved, err := s.store.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusFailed, "")
	if err != nil {
		log.WithError(err).Error("Failed to mark order failed")
		return
	}
	if moved {
		order.Status = models.OrderStatusFailed
		s.publish(ctx, events.EventOrderFailed, gatewayOrderID, orderPayload(order))
	}
}

func (s *PaymentService) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if err := s.events.Publish(ctx, eventType, key, payload); err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Warn("Failed to publish event")
	}
}

func orderPayload(o *models.Order) events.OrderPayload {
	return events.OrderPayload{
		OrderID:          o.ID,
		ProductID:        o.ProductID,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		Amount:           o.Amount.StringFixed(2),
		Status:           string(o.Status),
	}
}
