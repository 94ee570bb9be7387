package api

import (
	"kodbank/internal/config"     // Server configuration
	"kodbank/internal/middleware" // Custom middleware
	"kodbank/internal/storage"    // Persistence interfaces
	"time"                        // Start time for health

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Store is everything the routes persist through
type Store interface {
	storage.UserStore
	storage.TokenStore
	storage.Migrator
}

// NewRouter wires every Kodbank route; rdb may be nil to run without Redis
func NewRouter(cfg *config.Config, store Store, rdb redis.Cmdable) *gin.Engine {
	r := gin.New()                                    // Gin router instance
	r.Use(gin.Logger(), gin.Recovery())               // Default middleware
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins)) // Cross-origin access for browser clients
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})    // Only trust the local proxy

	r.GET("/health", HealthHandler(time.Now())) // Health endpoint
	r.GET("/init", InitHandler(store))          // Schema migration endpoint

	// Auth routes
	r.POST("/register", RegisterHandler(store, rdb, cfg.InitialBalance))    // Registration endpoint
	r.POST("/login", LoginHandler(store, store, cfg))                       // Login endpoint
	r.GET("/verify", VerifyHandler(cfg.JWTSecret, rdb))                     // Token check endpoint
	r.POST("/logout", LogoutHandler(store, cfg.JWTSecret, rdb, cfg.IsProd)) // Logout endpoint

	// Balance route (protected by JWT)
	r.POST("/getBalance", middleware.TokenAuthMiddleware(cfg.JWTSecret, rdb), GetBalanceHandler(store, rdb, cfg.BalanceTTL))

	return r
}
