// internal/store/gorm.go
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserStore       { return &gormUsers{db: s.db} }
func (s *GormStore) Products() ProductStore { return &gormProducts{db: s.db} }
func (s *GormStore) Orders() OrderStore     { return &gormOrders{db: s.db} }

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(Store) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

type gormProducts struct {
	db *gorm.DB
}

func (r *gormProducts) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *gormProducts) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// Update writes the editable columns only; aggregates are owned by IncrementSales.
func (r *gormProducts) Update(ctx context.Context, product *models.Product) error {
	result := r.db.WithContext(ctx).Model(product).
		Select("name", "description", "price", "image", "updated_at").
		Updates(product)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) List(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&models.Product{}), params)
}

func (r *gormProducts) ListBySeller(ctx context.Context, sellerID uint, params utils.PaginationParams) ([]models.Product, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&models.Product{}).Where("seller_id = ?", sellerID), params)
}

func (r *gormProducts) list(query *gorm.DB, params utils.PaginationParams) ([]models.Product, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	query = utils.ApplySort(query, params, productSortFields)
	if err := utils.ApplyPagination(query, params).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *gormProducts) IncrementSales(ctx context.Context, id uint, amount int64) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_sales":        gorm.Expr("total_sales + ?", 1),
			"total_sales_amount": gorm.Expr("total_sales_amount + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormOrders struct {
	db *gorm.DB
}

func (r *gormOrders) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *gormOrders) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Product").First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrders) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Product").
		Where("gateway_order_id = ?", gatewayOrderID).
		Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrders) TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus, paymentID string) (bool, error) {
	updates := map[string]interface{}{
		"status":   to,
		"has_paid": to == models.OrderStatusPaid,
	}
	if paymentID != "" {
		updates["gateway_payment_id"] = paymentID
	}

	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *gormOrders) SetReceipt(ctx context.Context, id uint, path string) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("receipt", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormOrders) ListPaidWithoutReceipt(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Product").
		Where("status = ? AND (receipt IS NULL OR receipt = '')", models.OrderStatusPaid).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *gormOrders) ListPaidByEmail(ctx context.Context, email string, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_email = ? AND status = ?", email, models.OrderStatusPaid)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	query = utils.ApplySort(query.Preload("Product"), params, orderSortFields)
	if err := utils.ApplyPagination(query, params).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *gormOrders) ListPaidSalesBySeller(ctx context.Context, sellerID uint) ([]Sale, error) {
	var sales []Sale
	err := r.db.WithContext(ctx).Table("orders").
		Select("orders.id AS order_id, orders.product_id, products.name AS product_name, orders.amount, orders.created_at").
		Joins("JOIN products ON products.id = orders.product_id").
		Where("products.seller_id = ? AND orders.status = ?", sellerID, models.OrderStatusPaid).
		Order("orders.created_at ASC").
		Scan(&sales).Error
	return sales, err
}
