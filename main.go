package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/audit"
	"github.com/lumenhr/aegis/api/config"
	"github.com/lumenhr/aegis/api/controller"
	"github.com/lumenhr/aegis/api/db"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/router"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Decision trail: Elasticsearch repository behind a Redis stream
	auditRepository, err := audit.NewElasticsearchRepository(
		config.GetString("elasticsearch.url"),
		config.GetString("audit.index"),
	)
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditQueue := audit.NewRedisQueue(db.RedisClient, config.GetString("audit.stream"))
	auditConsumer := audit.NewConsumer(db.RedisClient, auditRepository, audit.ConsumerConfig{
		Stream:        config.GetString("audit.stream"),
		Group:         config.GetString("audit.group"),
		Consumer:      config.GetString("audit.consumer"),
		MaxRetries:    config.GetInt("audit.maxRetries"),
		RetryBackoff:  config.GetDuration("audit.retryBackoff"),
		DeadLetterKey: config.GetString("audit.deadLetterKey"),
	})
	go func() {
		if err := auditConsumer.Run(ctx); err != nil {
			logger.Error("Decision log consumer stopped", zap.Error(err))
		}
	}()
	auditService := audit.NewService(auditQueue, auditRepository, config.GetDuration("audit.enqueueTimeout"))

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	// Initialize utilities
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	lockService := util.NewLockService()
	notificationService := util.NewNotificationService()

	// Initialize services
	services, err := service.InitializeServices(
		db.Neo4jDriver,
		auditService,
		validationUtil,
		cacheService,
		lockService,
		notificationService,
		eventBus,
	)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Initialize controllers
	controllers := controller.InitializeControllers(services)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(
		controllers,
		services.User,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: r,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
