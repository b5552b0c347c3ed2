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

	"github.com/skyward-amo/portal-shell/alert"
	"github.com/skyward-amo/portal-shell/analytics"
	"github.com/skyward-amo/portal-shell/cache"
	"github.com/skyward-amo/portal-shell/client"
	"github.com/skyward-amo/portal-shell/config"
	"github.com/skyward-amo/portal-shell/controller"
	"github.com/skyward-amo/portal-shell/db"
	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/router"
	"github.com/skyward-amo/portal-shell/service"
	"github.com/skyward-amo/portal-shell/session"
	"github.com/skyward-amo/portal-shell/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Redis (durable cache tier + rate limiter)
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize the lifecycle signal bus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Cache store over the Redis durable tier
	store := cache.NewStore(db.NewRedisKV(db.RedisClient))

	// Analytics sink
	analyticsRepo, err := analytics.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize analytics repository", zap.Error(err))
	}
	analyticsService := analytics.NewService(analyticsRepo)

	// Remote collaborators
	subscriptionClient := client.NewSubscriptionClient(config.GetString("endpoints.subscription"))
	trainingClient := client.NewTrainingClient(config.GetString("endpoints.training"))
	qmsClient := client.NewQMSClient(config.GetString("endpoints.qms"))
	documentClient := client.NewDocumentClient(config.GetString("endpoints.documents"))
	overviewClient := client.NewOverviewClient(config.GetString("endpoints.overview"))

	// Session manager and services
	clock := session.NewClock()
	manager := session.NewManager(store, eventBus, clock, session.ManagerConfig{
		IdleTimeout:      config.GetDuration("session.idleTimeout"),
		WarningLead:      config.GetDuration("session.warningLead"),
		ActivityDebounce: config.GetDuration("session.activityDebounce"),
		FastTTL:          config.GetDuration("cache.fastTTL"),
		StandardTTL:      config.GetDuration("cache.standardTTL"),
	})

	notificationService := service.NewNotificationService(store, trainingClient, qmsClient, documentClient, alert.NewLogAlerter())
	pollService := service.NewPollService(store, eventBus, subscriptionClient, notificationService, overviewClient)
	gateService := service.NewGateService(store, analyticsService,
		config.GetString("gate.lockoutPath"),
		config.GetStringSlice("gate.allowedPrefixes"))

	// Initialize controllers
	shellController := controller.NewShellController(manager, store, pollService, gateService, eventBus, clock)

	// Set up the router
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(shellController,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"))

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
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
