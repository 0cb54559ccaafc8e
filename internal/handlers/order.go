// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GET /v1/sales
func (h *OrderHandler) Sales(c *gin.Context) {
	sellerID, _ := utils.GetUserIDFromContext(c)

	report, err := h.orderService.Sales(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}
	utils.SuccessResponse(c, report)
}

// GET /v1/purchases
func (h *OrderHandler) Purchases(c *gin.Context) {
	email, _ := utils.GetEmailFromContext(c)
	params := utils.GetPaginationParams(c, 20)

	orders, total, err := h.orderService.Purchases(c.Request.Context(), email, params)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /v1/orders/:id/receipt
func (h *OrderHandler) Receipt(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c)
	email, _ := utils.GetEmailFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	link, err := h.orderService.ReceiptURL(c.Request.Context(), id, userID, email)
	if err != nil {
		respondError(c, err, i18n.KeyReceiptNotReady)
		return
	}
	utils.SuccessResponse(c, link)
}
