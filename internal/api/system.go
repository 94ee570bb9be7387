package api

import (
	"kodbank/internal/storage" // Persistence interfaces
	"net/http"                 // HTTP status codes
	"time"                     // Uptime

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// InitHandler creates or updates the database schema
func InitHandler(migrator storage.Migrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := migrator.Migrate(c.Request.Context()); err != nil {
			logrus.WithError(err).Error("Database initialization failed")
			respondInternal(c, "Failed to initialize database")
			return
		}
		respondSuccess(c, http.StatusOK, "Database initialized successfully!", nil)
	}
}

// HealthHandler reports uptime
func HealthHandler(startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startedAt).Truncate(time.Second).String(),
		})
	}
}
