// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/store"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type OrderService struct {
	store   store.Store
	content ContentStore
	now     func() time.Time
}

func NewOrderService(st store.Store, content ContentStore) *OrderService {
	return &OrderService{
		store:   st,
		content: content,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindByGatewayOrderID returns the newest order opened for the gateway order.
func (s *OrderService) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	if gatewayOrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := s.store.Orders().GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, gatewayOrderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (s *OrderService) Purchases(ctx context.Context, email string, params utils.PaginationParams) ([]models.Order, int64, error) {
	orders, total, err := s.store.Orders().ListPaidByEmail(ctx, email, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}
	return orders, total, nil
}

type ReceiptLink struct {
	OrderID uint   `json:"order_id"`
	Key     string `json:"receipt"`
	URL     string `json:"url"`
}

// ReceiptURL is available to the product's seller and to the buyer.
func (s *OrderService) ReceiptURL(ctx context.Context, orderID, userID uint, email string) (*ReceiptLink, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	isSeller := order.Product != nil && order.Product.SellerID == userID
	if !isSeller && order.CustomerEmail != email {
		return nil, ErrForbidden
	}
	if order.Status != models.OrderStatusPaid || !order.HasReceipt() {
		return nil, fmt.Errorf("%w: receipt for order %d", ErrNotFound, orderID)
	}

	return &ReceiptLink{
		OrderID: order.ID,
		Key:     order.Receipt,
		URL:     s.content.URL(order.Receipt),
	}, nil
}

type SalesReport struct {
	Total     decimal.Decimal `json:"total_sales"`
	LastYear  decimal.Decimal `json:"yearly_sales"`
	LastMonth decimal.Decimal `json:"monthly_sales"`
	LastWeek  decimal.Decimal `json:"weekly_sales"`
	Daily     []DailySales    `json:"daily_sales_sums"`
	Products  []ProductSales  `json:"product_sales_sums"`
}

type DailySales struct {
	Date string          `json:"date"`
	Sum  decimal.Decimal `json:"sum"`
}

type ProductSales struct {
	Name  string          `json:"product_name"`
	Sum   decimal.Decimal `json:"sum"`
	Count int             `json:"count"`
}

// Sales summarises the seller's PAID orders. Windows count orders created
// after midnight UTC of today minus 365, 30 and 7 days.
func (s *OrderService) Sales(ctx context.Context, sellerID uint) (*SalesReport, error) {
	sales, err := s.store.Orders().ListPaidSalesBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	lastYear := today.AddDate(0, 0, -365)
	lastMonth := today.AddDate(0, 0, -30)
	lastWeek := today.AddDate(0, 0, -7)

	report := &SalesReport{
		Daily:    []DailySales{},
		Products: []ProductSales{},
	}
	daily := map[string]int{}
	products := map[string]int{}

	for _, sale := range sales {
		at := sale.CreatedAt.UTC()
		report.Total = report.Total.Add(sale.Amount)
		if at.After(lastYear) {
			report.LastYear = report.LastYear.Add(sale.Amount)
		}
		if at.After(lastMonth) {
			report.LastMonth = report.LastMonth.Add(sale.Amount)
		}
		if at.After(lastWeek) {
			report.LastWeek = report.LastWeek.Add(sale.Amount)
		}

		day := at.Format("2006-01-02")
		if i, ok := daily[day]; ok {
			report.Daily[i].Sum = report.Daily[i].Sum.Add(sale.Amount)
		} else {
			daily[day] = len(report.Daily)
			report.Daily = append(report.Daily, DailySales{Date: day, Sum: sale.Amount})
		}

		if i, ok := products[sale.ProductName]; ok {
			report.Products[i].Sum = report.Products[i].Sum.Add(sale.Amount)
			report.Products[i].Count++
		} else {
			products[sale.ProductName] = len(report.Products)
			report.Products = append(report.Products, ProductSales{Name: sale.ProductName, Sum: sale.Amount, Count: 1})
		}
	}

	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })
	sort.Slice(report.Products, func(i, j int) bool { return report.Products[i].Name < report.Products[j].Name })
	return report, nil
}
