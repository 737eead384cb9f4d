package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/config"
	"github.com/GTDGit/storefront_api/internal/database"
	"github.com/GTDGit/storefront_api/internal/handler"
	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/middleware"
	"github.com/GTDGit/storefront_api/internal/repository"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/sse"
	"github.com/GTDGit/storefront_api/internal/worker"
	"github.com/GTDGit/storefront_api/pkg/kafka"
)

// main is the application entrypoint for the storefront API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting storefront api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	locker := cache.NewLocker(redisClient, 5*time.Second)
	couponCache := cache.NewCouponCache(redisClient, cfg.Checkout.CouponCacheTTL)

	// 4. Metrics and stock-change fan-out
	m := metrics.New(prometheus.DefaultRegisterer)
	hub := sse.NewHub()
	notifier := service.MultiStockNotifier{sse.NewHubNotifier(hub)}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(kafka.NewClient(cfg.Kafka.Brokers), cfg.Kafka.StockTopic)
		if err != nil {
			log.Warn().Err(err).Msg("kafka producer initialization failed - stock events will not be published")
		} else {
			defer producer.Close()
			kafkaNotifier := service.NewKafkaStockNotifier(producer)
			defer kafkaNotifier.Close()
			notifier = append(notifier, kafkaNotifier)
			log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.StockTopic).Msg("kafka stock events enabled")
		}
	}

	// 5. Initialize repositories
	productRepo := repository.NewProductRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	couponRepo := repository.NewCouponRepository(db)

	// 6. Initialize services
	aggregator := service.NewStockAggregator(productRepo, inventoryRepo, locker, notifier, m)
	inventorySvc := service.NewInventoryService(inventoryRepo, productRepo, aggregator)
	catalogSvc := service.NewCatalogService(productRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	couponSvc := service.NewCouponService(couponRepo, couponCache, m)
	checkoutSvc := service.NewCheckoutService(cartRepo, productRepo, couponSvc, cfg.Checkout.PreviewTimeout, m)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Product:   handler.NewProductHandler(catalogSvc),
		Inventory: handler.NewInventoryHandler(inventorySvc),
		Cart:      handler.NewCartHandler(cartSvc),
		Checkout:  handler.NewCheckoutHandler(checkoutSvc),
		Coupon:    handler.NewCouponHandler(couponSvc),
		SSE:       handler.NewSSEHandler(hub),
	}

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register request validators")
	}

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(m))

	rateLimiter := middleware.NewInvalidAuthRateLimiter(10, time.Minute)
	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWTSecret, rateLimiter)

	setupRoutes(router, handlers, jwtMiddleware, storeRepo)

	// 9. Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.NewCartCleanupWorker(cartSvc, cfg.Cart.GuestTTL, cfg.Cart.CleanupInterval).Start(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

type Handlers struct {
	Health    *handler.HealthHandler
	Product   *handler.ProductHandler
	Inventory *handler.InventoryHandler
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
	Coupon    *handler.CouponHandler
	SSE       *handler.SSEHandler
}

func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, stores middleware.StoreOperatorChecker) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/v1/stock/stream", handlers.SSE.Stream)

	products := router.Group("/v1/products")
	{
		products.GET("/:productId", handlers.Product.GetProduct)
		products.GET("/:productId/variants/:sku", handlers.Product.GetVariant)
		products.GET("/:productId/inventory", handlers.Inventory.ListByProduct)
	}

	storeInventory := router.Group("/v1/stores/:storeId/inventory")
	storeInventory.Use(jwtMiddleware.Handle(), middleware.StoreOwner(stores))
	{
		storeInventory.POST("", handlers.Inventory.Upsert)
		storeInventory.PATCH("/:inventoryId", handlers.Inventory.Update)
		storeInventory.GET("", handlers.Inventory.ListByStore)
	}

	// Guests are identified by the session header, users by their token.
	cart := router.Group("/v1/cart")
	cart.Use(jwtMiddleware.Optional(), middleware.CartOwner())
	{
		cart.GET("", handlers.Cart.GetCart)
		cart.POST("/items", handlers.Cart.AddItem)
		cart.PATCH("/items/:itemId", handlers.Cart.UpdateItem)
		cart.DELETE("/items/:itemId", handlers.Cart.RemoveItem)
	}
	router.POST("/v1/cart/merge", jwtMiddleware.Handle(), handlers.Cart.Merge)

	router.POST("/v1/checkout/preview", jwtMiddleware.Optional(), middleware.CartOwner(), handlers.Checkout.Preview)

	coupons := router.Group("/v1/coupons")
	{
		coupons.POST("/apply", jwtMiddleware.Handle(), handlers.Coupon.Apply)
		coupons.POST("/applicable", handlers.Coupon.Applicable)
	}
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
