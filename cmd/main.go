package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/TheOksigen/autopart-backend/internal/clients"
	"github.com/TheOksigen/autopart-backend/internal/config"
	"github.com/TheOksigen/autopart-backend/internal/events"
	"github.com/TheOksigen/autopart-backend/internal/handlers"
	"github.com/TheOksigen/autopart-backend/internal/metrics"
	"github.com/TheOksigen/autopart-backend/internal/middleware"
	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
	"github.com/TheOksigen/autopart-backend/internal/services"
	"github.com/TheOksigen/autopart-backend/internal/subscribers"
)

// @title Autopart Catalog API
// @version 1.0.0
// @description Auto-parts catalog with bulk product ingestion

// @host localhost:3000
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient := connectRedis(cfg.RedisURL, logger)

	// Initialize repositories
	productsRepo := repository.NewProductsRepository(db, redisClient)
	manufacturersRepo := repository.NewManufacturerRepository(db, redisClient)
	usersRepo := repository.NewUserRepository(db)

	rules := config.DefaultCoercionRules()
	if cfg.CoercionConfigPath != "" {
		rules, err = config.LoadCoercionRules(cfg.CoercionConfigPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load coercion rules")
		}
		logger.WithField("path", cfg.CoercionConfigPath).Info("Coercion rules loaded")
	}

	ingestOpts := []services.Option{
		services.WithCoercionRules(rules),
		services.WithLogger(logger),
		services.WithMaxRecords(cfg.BulkMaxRecords),
	}

	// Event publishing is optional; handlers accept a nil publisher
	var (
		publisher      *events.Publisher
		productEvents  handlers.ProductEventPublisher
		bulkSubscriber *subscribers.BulkIngestSubscriber
	)
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, "autopart-backend", logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to NATS (continuing without event publishing)")
		} else if publisher, err = events.NewPublisher(nc, logger); err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher (continuing without event publishing)")
			nc.Close()
		} else {
			productEvents = publisher
			ingestOpts = append(ingestOpts, services.WithPublisher(publisher))
			logger.Info("Events publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not set, skipping event publishing initialization")
	}

	ingestion, err := services.NewBulkIngestionService(manufacturersRepo, productsRepo, ingestOpts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create bulk ingestion service")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	if publisher != nil {
		bulkSubscriber = subscribers.NewBulkIngestSubscriber(publisher.JetStream(), ingestion, logger)
		if err := bulkSubscriber.Start(appCtx); err != nil {
			logger.WithError(err).Warn("Failed to start bulk ingest subscriber")
			bulkSubscriber = nil
		}
	}

	imageClient := clients.NewImageClient(cfg.ImageServiceURL, cfg.ImageBucket, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(usersRepo, cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour, logger)
	productsHandler := handlers.NewProductsHandler(productsRepo, manufacturersRepo, imageClient, productEvents,
		cfg.DefaultPageSize, cfg.MaxPageSize, logger)
	manufacturersHandler := handlers.NewManufacturersHandler(manufacturersRepo, logger)
	bulkHandler := handlers.NewBulkHandler(ingestion, logger)
	importHandler := handlers.NewImportHandler(ingestion, cfg.BulkMaxRecords, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS(cfg.CORSOrigins...))

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", metrics.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	secret := []byte(cfg.JWTSecret)
	authenticated := middleware.AuthMiddleware(secret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/verify", authenticated, authHandler.Verify)
		}

		products := api.Group("/products", authenticated)
		{
			products.GET("", productsHandler.GetProducts)
			products.GET("/:id", productsHandler.GetProduct)
			products.POST("", adminOnly, productsHandler.CreateProduct)
			products.PUT("/:id", adminOnly, productsHandler.UpdateProduct)
			products.DELETE("/:id", adminOnly, productsHandler.DeleteProduct)

			products.POST("/bulk", adminOnly, bulkHandler.BulkCreateProducts)
			products.POST("/import", adminOnly, importHandler.ImportProducts)
			products.GET("/import/template", adminOnly, importHandler.GetImportTemplate)
		}

		manufacturers := api.Group("/manufacturers", authenticated)
		{
			manufacturers.GET("", manufacturersHandler.GetManufacturers)
			manufacturers.GET("/:id", manufacturersHandler.GetManufacturer)
			manufacturers.POST("", adminOnly, manufacturersHandler.CreateManufacturer)
			manufacturers.DELETE("/:id", adminOnly, manufacturersHandler.DeleteManufacturer)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("Autopart backend starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-quit
	logger.Info("Shutting down autopart-backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if bulkSubscriber != nil {
		bulkSubscriber.Stop()
	}
	stopApp()
	if publisher != nil {
		publisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Autopart backend stopped")
}

// connectRedis returns nil when Redis is unreachable; repositories then skip caching
func connectRedis(url string, logger *logrus.Logger) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL (caching will be disabled)")
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis (caching will be disabled)")
		_ = client.Close()
		return nil
	}
	logger.Info("Redis connected")
	return client
}
