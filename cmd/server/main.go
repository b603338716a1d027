package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"resto_order_backend/internal/database"
	"resto_order_backend/internal/notification"
	appRouter "resto_order_backend/internal/router"
	"resto_order_backend/internal/session"
	"resto_order_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize Logger
	utils.InitLogger() // Initialize zerolog

	// Local development convenience; in deployment the environment is set
	// by the orchestrator and no .env file exists.
	if err := godotenv.Load(); err != nil {
		utils.LogInfo("No .env file found, relying on process environment")
	}

	// Load database configuration from environment variables
	dbHost := utils.Getenv("DB_HOST", "localhost")
	dbPort := utils.Getenv("DB_PORT", "5432")
	dbUser := utils.Getenv("DB_USER", "resto_order_user")
	dbPassword := utils.Getenv("DB_PASSWORD", "resto_order_password")
	dbName := utils.Getenv("DB_NAME", "resto_order_db")
	dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")
	dbSchemaPath := utils.Getenv("DB_SCHEMA_PATH", "")

	// Initialize Database
	database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, dbSchemaPath)
	utils.LogInfo("Database initialized", map[string]interface{}{"configured_from_env": true})

	// Session store backed by Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     utils.Getenv("REDIS_ADDR", "localhost:6379"),
		Password: utils.Getenv("REDIS_PASSWORD", ""),
	})
	sessionTTL := session.DefaultTTL
	if raw := utils.Getenv("SESSION_TTL", ""); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid SESSION_TTL %q: %v", raw, err)
		}
		sessionTTL = parsed
	}
	sessions := session.NewStore(redisClient, sessionTTL)

	// Receipt events go to Kafka for the notifier service
	kafkaBrokers := strings.Split(utils.Getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	receiptTopic := utils.Getenv("KAFKA_RECEIPT_TOPIC", "order-receipts")
	publisher := notification.NewKafkaReceiptPublisher(kafkaBrokers, receiptTopic)
	defer publisher.Close()

	router := gin.Default()

	// Add GinLogger middleware for request logging
	router.Use(utils.GinLogger())

	// CORS configuration
	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"} // Default origins
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	router.Use(cors.New(config))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Setup all application routes
	dbConn := database.GetDB()
	appRouter.Setup(router, dbConn, sessions, publisher)

	// Server port configuration
	port := utils.Getenv("PORT", "8080") // Default to 8080 if not set
	utils.LogInfo("Server starting", map[string]interface{}{"port": port, "configured_from_env": true})

	if err := router.Run(":" + port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
