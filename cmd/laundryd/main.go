package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/api"
	"laundry-branch-monitor/internal/backoffice"
	"laundry-branch-monitor/internal/board"
	"laundry-branch-monitor/internal/cache"
	"laundry-branch-monitor/internal/db"
	"laundry-branch-monitor/internal/notification"
	"laundry-branch-monitor/internal/publish"
	"laundry-branch-monitor/internal/refresh"
	"laundry-branch-monitor/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "laundryd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Backoffice.BaseURL == "" && cfg.Refresh.Enabled {
		logger.Fatalf("backoffice.base_url must be set when refresh is enabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Response cache: redis when configured, otherwise in-process
	var responses cache.Store = cache.NewMemory(
		time.Duration(cfg.Server.CacheTTLSeconds)*time.Second, cfg.Server.CacheMaxEntries)
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		responses = redisCache
		logger.Println("using redis response cache")
	}

	publisher, err := publish.New(cfg.Publish)
	if err != nil {
		logger.Fatalf("failed to initialize publisher: %v", err)
	}
	defer publisher.Close()

	// Push notifications are optional
	var webpushOptions *webpush.Options
	var workerPool *notification.WorkerPool
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
	}

	boards := board.New(appStore, cfg.Simulation)
	fetcher := backoffice.NewClient(cfg.Backoffice, responses)

	// Initialize and run the refresh loop in the background
	refreshSvc := refresh.NewService(cfg, appStore, fetcher, boards, publisher, workerPool)
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		refreshSvc.Run(ctx)
	}()

	// Initialize router
	handler := api.NewHandler(appStore, boards, refreshSvc, webpushOptions)
	router := api.NewRouter(handler, cfg.Server, responses)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Stop the refresh loop first so no cycle starts during shutdown.
	cancel()
	<-refreshDone

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
