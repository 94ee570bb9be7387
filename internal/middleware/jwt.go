package middleware

import (
	"context"                // Context for Redis lookups
	"errors"                 // Sentinel errors
	"kodbank/internal/utils" // JWT and cache utility functions
	"net/http"               // HTTP status codes
	"strings"                // String manipulation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// TokenCookie is the cookie carrying the session token
const TokenCookie = "jwt_token"

// ClaimsKey is the context key under which TokenAuthMiddleware stores *utils.Claims
const ClaimsKey = "claims"

var (
	// ErrNoToken is returned when the request carries no token at all
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken is returned for malformed, expired or revoked tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// ExtractToken reads the token from the jwt_token cookie, then from the Authorization header
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie // Cookie wins when both are present
	}
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Authenticate validates a token and checks it was not revoked at logout
func Authenticate(ctx context.Context, token, secret string, rdb redis.Cmdable) (*utils.Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims, err := utils.ParseJWT(token, secret) // Parse the JWT token
	if err != nil {
		return nil, ErrInvalidToken
	}
	if rdb != nil {
		revoked, err := utils.IsRevoked(ctx, rdb, token)
		if err != nil {
			// Fail open when Redis is unavailable
			logrus.WithError(err).Warn("revocation lookup failed")
		} else if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// TokenAuthMiddleware validates the session token and stores its claims in the context
func TokenAuthMiddleware(secret string, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		claims, err := Authenticate(c.Request.Context(), token, secret, rdb)
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, ErrNoToken) {
				message = "No token provided"
			}
			// Abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": message})
			return
		}
		c.Set(ClaimsKey, claims) // Store claims in context
		c.Next()                 // Proceed to the next handler
	}
}
