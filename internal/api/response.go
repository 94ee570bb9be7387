package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// Response statuses understood by the client
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// respondError writes the error envelope every endpoint shares
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": StatusError, "message": message})
}

// respondSuccess writes a success envelope, with data when present
func respondSuccess(c *gin.Context, code int, message string, data any) {
	body := gin.H{"status": StatusSuccess, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// respondInternal hides storage details behind a generic message
func respondInternal(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, message)
}
