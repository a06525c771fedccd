package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/groveshop/storefront/internal/module/order"
	"github.com/groveshop/storefront/internal/module/payment"
	"github.com/groveshop/storefront/internal/module/payment/paypal"
	"github.com/groveshop/storefront/internal/module/payment/stripe"
	"github.com/groveshop/storefront/internal/module/settings"
	sharedcache "github.com/groveshop/storefront/internal/shared/cache"
	"github.com/groveshop/storefront/internal/shared/config"
	"github.com/groveshop/storefront/internal/shared/database"
	"github.com/groveshop/storefront/internal/shared/logger"
	"github.com/groveshop/storefront/internal/utils/metrics"
	"github.com/groveshop/storefront/internal/utils/middleware"
)

// App wires the storefront together: configuration, storage, the
// notification gateways and the admin API.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	// Handlers
	orderHandler  *order.Handler
	paypalHandler *paypal.Handler
	stripeHandler *stripe.WebhookHandler

	// Services kept for cross-module wiring
	orderService   *order.Service
	paymentService *payment.Service
	settingsSvc    *settings.Service

	metrics *metrics.Metrics
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&order.Order{},
		&order.OrderNote{},
		&settings.Setting{},
		&payment.Transaction{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// Redis is optional; the settings service falls back to the
	// database when no cache is available.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, running without settings cache", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	app.metrics = metrics.New("storefront")

	app.initModules()
	app.router = app.setupRouter()

	return app, nil
}

// initModules builds repositories, services and handlers.
func (a *App) initModules() {
	// Settings
	settingsRepo := settings.NewRepository(a.db)
	var settingsCache settings.Cache
	if a.redis != nil {
		settingsCache = settings.NewRedisCache(a.redis)
	}
	a.settingsSvc = settings.NewService(settingsRepo, settingsCache, a.logger)

	// Orders
	orderRepo := order.NewRepository(a.db)
	a.orderService = order.NewService(orderRepo, a.logger)
	a.orderHandler = order.NewHandler(a.orderService, a.logger)

	// Payment transactions
	paymentRepo := payment.NewRepository(a.db)
	a.paymentService = payment.NewService(paymentRepo, a.logger, a.metrics)

	// PayPal gateway
	verifier := paypal.NewVerifier(&a.config.PayPal, a.logger, a.metrics)
	dispatcher := paypal.NewDispatcher(verifier, a.settingsSvc, a.orderService, a.paymentService, a.logger, a.metrics)
	a.paypalHandler = paypal.NewHandler(dispatcher, a.settingsSvc, a.config.Server.PublicBaseURL, a.logger)

	// Stripe gateway
	a.stripeHandler = stripe.NewWebhookHandler(a.paymentService, a.config.Stripe.WebhookSecret, a.logger, a.metrics)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider-facing notification endpoints; authenticity is
	// established per-gateway (verification round trip, signature),
	// not by middleware.
	webhooks := r.Group("/webhooks")
	a.paypalHandler.RegisterRoutes(webhooks)
	a.stripeHandler.RegisterRoutes(webhooks)

	// Admin API
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.RequireAdmin(a.config.Auth.JWTSecret))
	a.orderHandler.RegisterAdminRoutes(admin)
	a.paypalHandler.RegisterAdminRoutes(admin)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
