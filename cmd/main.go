package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-notes-platform/internal/ai"
	"campus-notes-platform/internal/config"
	"campus-notes-platform/internal/storage"
	"campus-notes-platform/internal/telemetry"
	"campus-notes-platform/middleware"
	"campus-notes-platform/routes"
	"campus-notes-platform/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Tracing is optional; without a collector the global providers no-op.
	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracer(context.Background(), "campus-notes-platform", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("Tracing disabled: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				shutdown(ctx)
			}()
		}
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatal("Failed to create metrics:", err)
	}

	// Object storage for uploaded unit documents
	objectStorage, err := storage.NewS3Storage(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to create S3 storage:", err)
	}

	// Gemini client behind circuit breaker and rate limits
	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()

	// Pipeline services
	extractor := services.NewPDFExtractor()
	generation := services.NewGenerationService(gemini, cfg.GenerationConcurrency)
	store := services.NewTrackStore(db, objectStorage)
	ingestion := services.NewIngestionService(cfg, objectStorage, extractor, generation, store, metrics)

	var emailSender services.EmailSender
	if cfg.SMTPHost != "" {
		emailSender = services.NewSMTPEmailSender(cfg)
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(otelgin.Middleware("campus-notes-platform"))
	router.MaxMultipartMemory = cfg.MaxFileSize

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Rate limiting is optional; without Redis requests pass through.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg)
	roleMiddleware := middleware.NewRoleMiddleware()

	// Setup routes
	routes.SetupAuthRoutes(router, cfg, db)
	routes.SetupTrackRoutes(router, cfg, ingestion, store, authMiddleware, roleMiddleware)
	routes.SetupQuizRoutes(router, store, authMiddleware, roleMiddleware)
	routes.SetupActivityRoutes(router, db, authMiddleware)
	routes.SetupMeetingRoutes(router, db, emailSender, authMiddleware, roleMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
