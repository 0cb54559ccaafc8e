//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/models"
)

func TestGormStoreAgainstPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("marketplace"),
		tcpostgres.WithUsername("marketplace"),
		tcpostgres.WithPassword("marketplace"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	s := NewGormStore(db)

	seller := &models.User{Username: "seller", Email: "seller@example.com", PasswordHash: "x"}
	require.NoError(t, s.Users().Create(ctx, seller))
	assert.ErrorIs(t, s.Users().Create(ctx, &models.User{Username: "seller", Email: "dup@example.com", PasswordHash: "x"}), ErrDuplicate)

	product := &models.Product{SellerID: seller.ID, Name: "Mug", Price: decimal.RequireFromString("499.00")}
	require.NoError(t, s.Products().Create(ctx, product))

	order := &models.Order{ProductID: product.ID, CustomerEmail: "buyer@example.com", Amount: product.Price, GatewayOrderID: "order_it_1"}
	require.NoError(t, s.Orders().Create(ctx, order))
	assert.Equal(t, models.OrderStatusPending, order.Status)

	err = s.WithinTransaction(ctx, func(tx Store) error {
		moved, err := tx.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid, "pay_1")
		if err != nil || !moved {
			return err
		}
		return tx.Products().IncrementSales(ctx, product.ID, order.Amount.IntPart())
	})
	require.NoError(t, err)

	moved, err := s.Orders().TransitionStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid, "pay_1")
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := s.Products().Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalSales)
	assert.Equal(t, int64(499), got.TotalSalesAmount)

	sales, err := s.Orders().ListPaidSalesBySeller(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Amount.Equal(decimal.RequireFromString("499")))

	missing, err := s.Orders().ListPaidWithoutReceipt(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	require.NoError(t, s.Products().Delete(ctx, product.ID))
	_, err = s.Orders().Get(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
