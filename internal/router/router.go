// internal/router/router.go
package router

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/handlers"
	"github.com/javajoker/marketplace-backend/internal/middleware"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// Services are the dependencies the handlers are built from.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Payments *services.PaymentService
	Orders   *services.OrderService
	Health   handlers.Pinger
}

// Route is one entry of the route table. Method "ANY" matches every method.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	// Auth requires a valid bearer token.
	Auth bool
	// OriginExempt skips the origin check. Gateway callbacks arrive cross-origin.
	OriginExempt bool
	// AuthLimited applies the stricter credential rate limit.
	AuthLimited bool
}

func Routes(svc Services, cfg *config.Config) []Route {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	productHandler := handlers.NewProductHandler(svc.Products, svc.Payments)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments, svc.Orders, cfg.Server.PublicBaseURL)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	healthHandler := handlers.NewHealthHandler(svc.Health)

	return []Route{
		{Method: http.MethodGet, Path: "/health", Handler: healthHandler.Health},
		{Method: http.MethodGet, Path: "/", Handler: productHandler.GetProducts},

		{Method: http.MethodPost, Path: "/v1/auth/register", Handler: authHandler.Register, AuthLimited: true},
		{Method: http.MethodPost, Path: "/v1/auth/login", Handler: authHandler.Login, AuthLimited: true},
		{Method: http.MethodGet, Path: "/v1/auth/me", Handler: authHandler.Me, Auth: true},

		{Method: http.MethodGet, Path: "/v1/products", Handler: productHandler.GetProducts},
		{Method: http.MethodGet, Path: "/v1/products/:id", Handler: productHandler.GetProduct},
		{Method: http.MethodPost, Path: "/v1/products", Handler: productHandler.CreateProduct, Auth: true},
		{Method: http.MethodPut, Path: "/v1/products/:id", Handler: productHandler.UpdateProduct, Auth: true},
		{Method: http.MethodDelete, Path: "/v1/products/:id", Handler: productHandler.DeleteProduct, Auth: true},
		{Method: http.MethodPost, Path: "/v1/products/:id/image", Handler: productHandler.UploadImage, Auth: true},
		{Method: http.MethodGet, Path: "/v1/dashboard", Handler: productHandler.Dashboard, Auth: true},

		{Method: http.MethodGet, Path: "/v1/sales", Handler: orderHandler.Sales, Auth: true},
		{Method: http.MethodGet, Path: "/v1/purchases", Handler: orderHandler.Purchases, Auth: true},
		{Method: http.MethodGet, Path: "/v1/orders/:id/receipt", Handler: orderHandler.Receipt, Auth: true},

		{Method: http.MethodPost, Path: "/create-checkout-session/:id", Handler: paymentHandler.Checkout, OriginExempt: true},
		{Method: http.MethodPost, Path: "/verify-payment", Handler: paymentHandler.Verify, OriginExempt: true},
		{Method: http.MethodGet, Path: "/success", Handler: paymentHandler.Success, OriginExempt: true},
		{Method: http.MethodPost, Path: "/success", Handler: paymentHandler.Success, OriginExempt: true},
		{Method: http.MethodGet, Path: "/failed", Handler: paymentHandler.Failed},
		{Method: "ANY", Path: "/payment-handler", Handler: paymentHandler.Callback, OriginExempt: true},
	}
}

// New builds the engine. The returned stop function releases the rate
// limiter janitors.
func New(cfg *config.Config, svc Services) (*gin.Engine, func()) {
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	general := middleware.PerSecond(cfg.RateLimit.GeneralPerSecond, cfg.RateLimit.GeneralBurst)
	credentials := middleware.PerMinute(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(general.Middleware())

	originCheck := middleware.OriginCheck(cfg.CORS.AllowedOrigins)
	authRequired := middleware.AuthRequired()
	credentialLimit := credentials.Middleware()

	for _, route := range Routes(svc, cfg) {
		chain := make([]gin.HandlerFunc, 0, 4)
		if route.AuthLimited {
			chain = append(chain, credentialLimit)
		}
		if !route.OriginExempt {
			chain = append(chain, originCheck)
		}
		if route.Auth {
			chain = append(chain, authRequired)
		}
		chain = append(chain, route.Handler)

		if route.Method == "ANY" {
			r.Any(route.Path, chain...)
			continue
		}
		r.Handle(route.Method, route.Path, chain...)
	}

	if cfg.Storage.Driver == "local" {
		r.Static(mediaPath(cfg.Storage.LocalURL), cfg.Storage.LocalRoot)
	}

	return r, func() {
		general.Stop()
		credentials.Stop()
	}
}

// mediaPath is the path component of the public media URL.
func mediaPath(localURL string) string {
	u, err := url.Parse(localURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/media"
	}
	return u.Path
}
