// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/store"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// Index page size, also the dashboard default.
const DefaultProductPageSize = 3

var maxPrice = decimal.RequireFromString("99999999.99")

type ProductService struct {
	store   store.Store
	content ContentStore
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=100"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty" validate:"omitempty,max=500"`
}

type UpdateProductRequest struct {
	Name        string           `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Image       *string          `json:"image,omitempty" validate:"omitempty,max=500"`
}

func NewProductService(st store.Store, content ContentStore) *ProductService {
	return &ProductService{
		store:   st,
		content: content,
	}
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || price.GreaterThan(maxPrice) || !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price must be between 0.01 and %s with at most 2 decimals", ErrValidation, maxPrice)
	}
	return nil
}

func (s *ProductService) CreateProduct(ctx context.Context, sellerID uint, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "seller_id": sellerID}).Info("Product created")
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.store.Products().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil
}

// ownedProduct loads the product and checks the caller sells it.
func (s *ProductService) ownedProduct(ctx context.Context, id, sellerID uint) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, fmt.Errorf("%w: product %d belongs to another seller", ErrForbidden, id)
	}
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id, sellerID uint, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	product, err := s.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		product.Price = *req.Price
	}
	if req.Image != nil {
		product.Image = *req.Image
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the product with its orders and returns what was deleted.
func (s *ProductService) DeleteProduct(ctx context.Context, id, sellerID uint) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Products().Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	logrus.WithFields(logrus.Fields{"product_id": id, "seller_id": sellerID}).Info("Product deleted")
	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	products, total, err := s.store.Products().List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (s *ProductService) GetSellerProducts(ctx context.Context, sellerID uint, params utils.PaginationParams) ([]models.Product, int64, error) {
	products, total, err := s.store.Products().ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list seller products: %w", err)
	}
	return products, total, nil
}

// UploadImage stores the file and points the product image at it.
func (s *ProductService) UploadImage(ctx context.Context, id, sellerID uint, file multipart.File, header *multipart.FileHeader) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	key, err := UploadFile(ctx, s.content, file, header, ProductImageUpload)
	if err != nil {
		return nil, err
	}

	product.Image = key
	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// ImageURL resolves a product's image reference for clients.
func (s *ProductService) ImageURL(p *models.Product) string {
	switch {
	case p.Image == "":
		return ""
	case strings.HasPrefix(p.Image, "http://"), strings.HasPrefix(p.Image, "https://"):
		return p.Image
	default:
		return s.content.URL(p.Image)
	}
}
