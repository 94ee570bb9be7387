package api

import (
	"errors"                      // Error inspection
	"fmt"                         // Message formatting
	"kodbank/internal/middleware" // Context keys
	"kodbank/internal/storage"    // Persistence interfaces
	"kodbank/internal/utils"      // Utility functions
	"net/http"                    // HTTP status codes
	"time"                        // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// GetBalanceHandler returns the balance of the authenticated user
func GetBalanceHandler(users storage.UserStore, rdb redis.Cmdable, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.MustGet(middleware.ClaimsKey).(*utils.Claims) // Set by TokenAuthMiddleware
		if !ok {
			respondError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := c.Request.Context()
		username := claims.Username()
		cacheKey := utils.BalanceKey(username) // Cache key for the balance
		var balance float64
		if rdb != nil {
			found, err := utils.GetCache(ctx, rdb, cacheKey, &balance) // Try to get from cache
			if err == nil && found {
				respondBalance(c, username, balance)
				return
			}
		}
		// If not in cache, fetch from storage
		user, err := users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(c, http.StatusNotFound, "User not found")
				return
			}
			logrus.WithFields(logrus.Fields{
				"username": username,    // Username
				"error":    err.Error(), // Error message
			}).Error("Failed to fetch balance")
			respondInternal(c, "Failed to fetch balance")
			return
		}
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, cacheKey, user.Balance, ttl) // Cache the balance
		}
		respondBalance(c, username, user.Balance)
	}
}

func respondBalance(c *gin.Context, username string, balance float64) {
	respondSuccess(c, http.StatusOK, fmt.Sprintf("Your balance is: %.2f", balance), gin.H{
		"username": username,
		"balance":  balance,
	})
}
