// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	paymentService *services.PaymentService
}

func NewProductHandler(productService *services.ProductService, paymentService *services.PaymentService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		paymentService: paymentService,
	}
}

type productView struct {
	*models.Product
	ImageURL string `json:"image_url,omitempty"`
}

func (h *ProductHandler) view(p *models.Product) productView {
	return productView{Product: p, ImageURL: h.productService.ImageURL(p)}
}

func (h *ProductHandler) views(products []models.Product) []productView {
	out := make([]productView, 0, len(products))
	for i := range products {
		out = append(out, h.view(&products[i]))
	}
	return out
}

// GET / and GET /v1/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c, services.DefaultProductPageSize)

	products, total, err := h.productService.ListProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	result := utils.CreatePaginationResult(h.views(products), total, params)
	utils.PaginatedResponse(c, result)
}

// GET /v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product":       h.view(product),
		"gateway_key":   h.paymentService.PublishableKey(),
		"checkout_path": "/create-checkout-session/" + c.Param("id"),
	})
}

// POST /v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerID, _ := utils.GetUserIDFromContext(c)

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), sellerID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": h.view(product),
	})
}

// PUT /v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerID, _ := utils.GetUserIDFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, sellerID, &req)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": h.view(product),
	})
}

// DELETE /v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerID, _ := utils.GetUserIDFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.DeleteProduct(c.Request.Context(), id, sellerID)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted, product.Name),
	})
}

// POST /v1/products/:id/image
func (h *ProductHandler) UploadImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerID, _ := utils.GetUserIDFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}
	defer file.Close()

	product, err := h.productService.UploadImage(c.Request.Context(), id, sellerID, file, header)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductImageUploaded),
		"product": h.view(product),
	})
}

// GET /v1/dashboard
func (h *ProductHandler) Dashboard(c *gin.Context) {
	sellerID, _ := utils.GetUserIDFromContext(c)
	params := utils.GetPaginationParams(c, services.DefaultProductPageSize)

	products, total, err := h.productService.GetSellerProducts(c.Request.Context(), sellerID, params)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	result := utils.CreatePaginationResult(h.views(products), total, params)
	utils.PaginatedResponse(c, result)
}
