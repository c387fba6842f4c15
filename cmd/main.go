package main

import (
	"log"

	"golang-ordering-backend/configs"
	"golang-ordering-backend/internal/gateways"
	"golang-ordering-backend/internal/handlers"
	"golang-ordering-backend/internal/middleware"
	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/internal/repositories"
	"golang-ordering-backend/internal/services"
	"golang-ordering-backend/pkg/auth"
	"golang-ordering-backend/pkg/cache"
	"golang-ordering-backend/pkg/database"
	"golang-ordering-backend/pkg/messaging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config := configs.LoadConfig()

	// Set Gin mode
	gin.SetMode(config.Server.Mode)

	// Initialize PostgreSQL (payment attempt ledger)
	db, err := database.NewDatabase(config.Database.PostgresURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Postgres.AutoMigrate(&models.PaymentAttempt{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis (guest cart slots, catalog cache)
	redisCache := cache.NewRedisCache(config.Redis.URL, config.Redis.Password, config.Redis.DB)
	if redisCache == nil {
		log.Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Initialize Kafka producer
	kafkaProducer := messaging.NewKafkaProducer(config.Kafka.Brokers)
	defer kafkaProducer.Close()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(config.JWT.SecretKey, config.JWT.ExpiryHours)

	// Initialize upstream gateways
	cartGateway := gateways.NewCartGateway(config.Upstream.BaseURL)
	catalogGateway := gateways.NewCatalogGateway(config.Upstream.BaseURL)
	paymentGateway := gateways.NewPaymentGateway(config.Payment.BaseURL)

	// Initialize repositories
	attemptRepo := repositories.NewPaymentAttemptRepository(db.Postgres)

	// Initialize services
	cartService := services.NewCartService(redisCache, cartGateway)
	catalogService := services.NewCatalogService(catalogGateway, redisCache)
	checkoutService := services.NewCheckoutService(
		paymentGateway,
		catalogService,
		attemptRepo,
		cartService,
		kafkaProducer,
		config.Kafka.Brokers,
	)

	// Initialize middleware
	sessionMiddleware := middleware.NewSessionMiddleware(jwtManager)

	// Initialize handlers
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cartService)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.Default())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "golang-ordering-backend",
		})
	})

	// API routes
	api := router.Group("/api/v1")

	// Register routes
	cartHandler.RegisterRoutes(api, sessionMiddleware)
	checkoutHandler.RegisterRoutes(api, sessionMiddleware)

	log.Printf("Server starting on port %s", config.Server.Port)
	log.Fatal(router.Run(":" + config.Server.Port))
}
