// internal/handlers/payment.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

const (
	statusError    = "Error"
	paymentHandler = "/payment-handler"
)

// PaymentHandler serves the gateway-facing routes. Their JSON bodies are
// consumed by the checkout script, so they keep a flat {status, error}
// shape instead of the envelope used elsewhere.
type PaymentHandler struct {
	paymentService *services.PaymentService
	orderService   *services.OrderService
	publicBaseURL  string
}

func NewPaymentHandler(paymentService *services.PaymentService, orderService *services.OrderService, publicBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		orderService:   orderService,
		publicBaseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

func (h *PaymentHandler) callbackURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + paymentHandler
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host + paymentHandler
}

func failure(c *gin.Context, code int, status string, err error) {
	c.JSON(code, gin.H{"status": status, "error": err.Error()})
}

// POST /create-checkout-session/:id
func (h *PaymentHandler) Checkout(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, statusError, err)
		return
	}

	result, err := h.paymentService.Checkout(c.Request.Context(), id, &req)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		failure(c, http.StatusBadRequest, statusError, err)
		return
	case errors.Is(err, services.ErrNotFound):
		failure(c, http.StatusNotFound, statusError, err)
		return
	case errors.Is(err, services.ErrGateway):
		failure(c, http.StatusBadGateway, statusError, err)
		return
	default:
		failure(c, http.StatusInternalServerError, statusError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     result.GatewayOrderID,
		"amount":       result.Amount,
		"callback_url": h.callbackURL(c),
	})
}

// POST /verify-payment
func (h *PaymentHandler) Verify(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		failure(c, http.StatusBadRequest, statusError, err)
		return
	}

	result, err := h.paymentService.Verify(c.Request.Context(), &req)
	var receiptErr *services.ReceiptError
	switch {
	case err == nil:
	case errors.As(err, &receiptErr):
		failure(c, http.StatusInternalServerError, i18n.T(lang, i18n.KeyPaymentReceiptFailed), err)
		return
	case errors.Is(err, services.ErrSignatureInvalid):
		failure(c, http.StatusBadRequest, i18n.T(lang, i18n.KeyPaymentFailed), err)
		return
	case errors.Is(err, services.ErrValidation):
		failure(c, http.StatusBadRequest, statusError, err)
		return
	default:
		// Unknown orders and conflicts are 500 on this route.
		failure(c, http.StatusInternalServerError, statusError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            i18n.T(lang, i18n.KeyPaymentVerified),
		"order_id":          result.OrderID,
		"razorpay_order_id": result.GatewayOrderID,
	})
}

type successRequest struct {
	GatewayOrderID string `json:"razorpay_order_id" form:"razorpay_order_id"`
	OrderID        string `json:"order_id" form:"order_id"`
}

func (r successRequest) id() string {
	if r.GatewayOrderID != "" {
		return r.GatewayOrderID
	}
	return r.OrderID
}

// GET, POST /success
func (h *PaymentHandler) Success(c *gin.Context) {
	var req successRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			failure(c, http.StatusBadRequest, statusError, err)
			return
		}
	}
	if req.id() == "" {
		_ = c.ShouldBindQuery(&req)
	}

	order, err := h.orderService.FindByGatewayOrderID(c.Request.Context(), req.id())
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		failure(c, http.StatusBadRequest, statusError, err)
		return
	case errors.Is(err, services.ErrNotFound):
		failure(c, http.StatusNotFound, statusError, err)
		return
	default:
		failure(c, http.StatusInternalServerError, statusError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            order.Status,
		"order_id":          order.ID,
		"razorpay_order_id": order.GatewayOrderID,
		"order":             order,
	})
}

// GET /failed
func (h *PaymentHandler) Failed(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	msg := c.Query("error")
	if msg == "" {
		msg = i18n.T(lang, i18n.KeyPaymentFailedDefault)
	}
	c.JSON(http.StatusOK, gin.H{"error": msg})
}

// POST /payment-handler
func (h *PaymentHandler) Callback(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusBadRequest, gin.H{"status": i18n.T(lang, i18n.KeyPaymentInvalidRequest)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": i18n.T(lang, i18n.KeyPaymentHandlerAccepted)})
}
