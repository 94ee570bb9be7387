package main

import (
	"context"                            // context package is needed for Redis operations
	"errors"                             // Distinguishing a clean shutdown
	"kodbank/internal/api"               // Custom package for API handlers
	"kodbank/internal/config"            // Custom package for configuration
	"kodbank/internal/db"                // Database connection and migration
	"kodbank/internal/storage/gormstore" // GORM-backed storage
	"net/http"                           // HTTP server
	"os"                                 // Signals
	"os/signal"                          // Signal notification
	"syscall"                            // SIGTERM
	"time"                               // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	conn, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	store := gormstore.New(conn)

	// Setup Redis client when configured; the API runs without a cache otherwise
	var cache redis.Cmdable
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		logrus.Warn("REDIS_ADDR not set; balance cache and token revocation disabled")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           api.NewRouter(cfg, store, cache),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("graceful shutdown error: %v", err)
	}
}
