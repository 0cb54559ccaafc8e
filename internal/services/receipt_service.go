// internal/services/receipt_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/receipt"
	"github.com/javajoker/marketplace-backend/internal/store"
)

const maxImageBytes = 10 * 1024 * 1024

// ReceiptGenerator produces and attaches a receipt to a paid order.
type ReceiptGenerator interface {
	Generate(ctx context.Context, order *models.Order) error
}

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPImageFetcher struct {
	client *http.Client
}

func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	return &HTTPImageFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("image host returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

type ReceiptService struct {
	store   store.Store
	content ContentStore
	images  ImageFetcher
}

func NewReceiptService(st store.Store, content ContentStore, images ImageFetcher) *ReceiptService {
	return &ReceiptService{
		store:   st,
		content: content,
		images:  images,
	}
}

func ReceiptKey(orderID uint) string {
	return fmt.Sprintf("receipts/receipt_%d.pdf", orderID)
}

// Generate renders the receipt, replaces any file left at the receipt key and
// records the stored key on the order.
func (s *ReceiptService) Generate(ctx context.Context, order *models.Order) error {
	log := logrus.WithField("order_id", order.ID)

	product := order.Product
	if product == nil {
		p, err := s.store.Products().Get(ctx, order.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, order.ProductID)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}
		product = p
	}

	data := receipt.Data{
		OrderID:     order.ID,
		ProductName: product.Name,
		Amount:      order.Amount,
		Email:       order.CustomerEmail,
		PurchasedAt: order.CreatedAt,
	}
	if product.Image != "" {
		img, err := s.images.Fetch(ctx, s.imageURL(product.Image))
		if err != nil {
			log.WithError(err).Warn("Could not fetch product image for receipt")
		} else {
			data.Image = img
		}
	}

	pdf, err := receipt.Render(data)
	if err != nil {
		return err
	}

	key := ReceiptKey(order.ID)
	if exists, err := s.content.Exists(ctx, key); err == nil && exists {
		if err := s.content.Delete(ctx, key); err != nil {
			log.WithError(err).Warn("Could not delete previous receipt")
		}
	}

	stored, err := s.content.Save(ctx, key, pdf)
	if err != nil {
		return fmt.Errorf("%w: save receipt: %v", ErrStorage, err)
	}
	if err := s.store.Orders().SetReceipt(ctx, order.ID, stored); err != nil {
		return fmt.Errorf("%w: record receipt: %v", ErrStorage, err)
	}

	order.Receipt = stored
	log.WithField("receipt", stored).Info("Receipt generated")
	return nil
}

// URL resolves a receipt or image key to something a client can download.
func (s *ReceiptService) URL(key string) string {
	return s.imageURL(key)
}

func (s *ReceiptService) imageURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return s.content.URL(ref)
}
