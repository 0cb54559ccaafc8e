// internal/app/app.go
package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/cache"
	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/events"
	"github.com/javajoker/marketplace-backend/internal/payment"
	"github.com/javajoker/marketplace-backend/internal/router"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/store"
)

// App holds the process-wide dependencies shared by the server and the
// receipt command.
type App struct {
	Config    *config.Config
	Store     store.Store
	Content   services.ContentStore
	Gateway   payment.Gateway
	Receipts  *services.ReceiptService
	Locker    cache.Locker
	Publisher events.Publisher

	closers []func()
}

func ConfigureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Database.Driver {
	case "memory":
		logrus.Warn("Using in-memory store, data is lost on exit")
		a.Store = store.NewMemoryStore()
	default:
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { database.Close(db) })
		if err := database.RunMigrations(db); err != nil {
			a.Close()
			return nil, err
		}
		a.Store = store.NewGormStore(db)
	}

	content, err := services.NewContentStore(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize content store: %w", err)
	}
	a.Content = content

	gateway, err := NewGateway(cfg.Payment)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gateway = gateway

	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Locker = cache.NewRedisLocker(client, cfg.Redis.LockTTL)
	} else {
		a.Locker = cache.NewLocalLocker(cfg.Redis.LockTTL)
	}

	if cfg.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.ServiceName)
		a.closers = append(a.closers, func() {
			if err := publisher.Close(); err != nil {
				logrus.WithError(err).Warn("Error closing event publisher")
			}
		})
		a.Publisher = publisher
	} else {
		a.Publisher = events.NoopPublisher{}
	}

	a.Receipts = services.NewReceiptService(a.Store, a.Content, services.NewHTTPImageFetcher(cfg.Receipt.ImageFetchTimeout))

	logrus.WithFields(logrus.Fields{
		"database": cfg.Database.Driver,
		"gateway":  gateway.Name(),
		"storage":  cfg.Storage.Driver,
		"redis":    cfg.Redis.Enabled(),
		"kafka":    cfg.Kafka.Enabled(),
	}).Info("Dependencies initialized")

	return a, nil
}

func NewGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	switch cfg.Provider {
	case "razorpay":
		return payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret), nil
	case "stripe":
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripePublishableKey), nil
	case "sandbox":
		return payment.NewSandboxGateway(cfg.SandboxSecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

func (a *App) Services() router.Services {
	return router.Services{
		Auth:     services.NewAuthService(a.Store.Users(), a.Config),
		Products: services.NewProductService(a.Store, a.Content),
		Payments: services.NewPaymentService(a.Store, a.Gateway, a.Receipts, a.Locker, a.Publisher, a.Config.Payment.Currency),
		Orders:   services.NewOrderService(a.Store, a.Content),
		Health:   a.Store,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
