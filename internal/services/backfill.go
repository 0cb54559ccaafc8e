// internal/services/backfill.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/store"
)

type BackfillResult struct {
	Total   int
	Success int
	Failed  int
}

// ReceiptBackfill regenerates receipts for PAID orders that have none.
type ReceiptBackfill struct {
	orders   store.OrderStore
	receipts ReceiptGenerator
	// OnResult, when set, is called once per processed order.
	OnResult func(order models.Order, err error)
}

func NewReceiptBackfill(orders store.OrderStore, receipts ReceiptGenerator) *ReceiptBackfill {
	return &ReceiptBackfill{orders: orders, receipts: receipts}
}

// Run processes every candidate independently; one failure does not stop the rest.
func (b *ReceiptBackfill) Run(ctx context.Context) (BackfillResult, error) {
	var result BackfillResult

	orders, err := b.orders.ListPaidWithoutReceipt(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list orders without receipt: %w", err)
	}
	result.Total = len(orders)

	for i := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		order := orders[i]
		err := b.receipts.Generate(ctx, &order)
		if err != nil {
			result.Failed++
			logrus.WithError(err).WithField("order_id", order.ID).Error("Receipt backfill failed")
		} else {
			result.Success++
		}
		if b.OnResult != nil {
			b.OnResult(order, err)
		}
	}

	return result, nil
}

// Retry regenerates the receipt of one order if it is PAID and still lacks
// one. It reports whether a receipt was generated.
func (b *ReceiptBackfill) Retry(ctx context.Context, orderID uint) (bool, error) {
	order, err := b.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	if order.Status != models.OrderStatusPaid || order.HasReceipt() {
		return false, nil
	}

	if err := b.receipts.Generate(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}
