// internal/store/store.go

// Package store persists users, products and orders.
//
// Two implementations exist: GormStore backed by PostgreSQL and MemoryStore,
// used by tests and by DB_DRIVER=memory for local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type Store interface {
	Users() UserStore
	Products() ProductStore
	Orders() OrderStore
	// WithinTransaction runs fn against a Store bound to one transaction.
	// Returning an error from fn rolls everything back.
	WithinTransaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, id uint) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	// Delete removes the product and, by cascade, its orders.
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error)
	ListBySeller(ctx context.Context, sellerID uint, params utils.PaginationParams) ([]models.Product, int64, error)
	// IncrementSales adds one sale and amount to the product aggregates.
	IncrementSales(ctx context.Context, id uint, amount int64) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	// Get and the other lookups preload Product.
	Get(ctx context.Context, id uint) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// TransitionStatus moves the order from one status to another only if it
	// is still in from. It reports whether this call performed the move.
	TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus, paymentID string) (bool, error)
	SetReceipt(ctx context.Context, id uint, path string) error
	ListPaidWithoutReceipt(ctx context.Context) ([]models.Order, error)
	ListPaidByEmail(ctx context.Context, email string, params utils.PaginationParams) ([]models.Order, int64, error)
	// ListPaidSalesBySeller returns every PAID order of the seller's
	// products, oldest first.
	ListPaidSalesBySeller(ctx context.Context, sellerID uint) ([]Sale, error)
}

type Sale struct {
	OrderID     uint
	ProductID   uint
	ProductName string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

var productSortFields = []string{"id", "created_at", "name", "price", "total_sales"}

var orderSortFields = []string{"id", "created_at", "amount"}
