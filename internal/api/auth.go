package api

import (
	"errors"                      // Error inspection
	"kodbank/internal/config"     // Server configuration
	"kodbank/internal/domain"     // Importing domain models
	"kodbank/internal/middleware" // Token extraction helpers
	"kodbank/internal/storage"    // Persistence interfaces
	"kodbank/internal/utils"      // Utility functions
	"net/http"                    // HTTP status codes
	"strings"                     // String manipulation
	"time"                        // Token expiry

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Session row identifiers
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
)

// RegisterRequest carries the registration form; pointers tell absent fields from empty ones
type RegisterRequest struct {
	UID      *string `json:"uid"`      // Client supplied user ID
	Username *string `json:"username"` // Username
	Email    *string `json:"email"`    // Email address
	Password *string `json:"password"` // Plain password
	Phone    *string `json:"phone"`    // Phone number
	Role     string  `json:"role"`     // Optional role, Customer by default
}

// LoginRequest carries the login form
type LoginRequest struct {
	Username string `json:"username"` // Username
	Password string `json:"password"` // Plain password
}

// UserData is the public view of a session's owner
type UserData struct {
	Username string `json:"username"` // Username
	Role     string `json:"role"`     // User role
	UID      string `json:"uid"`      // User ID
}

// missingField returns the first required field that is absent or blank
func (r RegisterRequest) missingField() string {
	fields := []struct {
		name  string
		value *string
	}{
		{"uid", r.UID},
		{"username", r.Username},
		{"email", r.Email},
		{"password", r.Password},
		{"phone", r.Phone},
	}
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return f.name
		}
	}
	return ""
}

// RegisterHandler creates a user with the configured opening balance
func RegisterHandler(users storage.UserStore, rdb redis.Cmdable, initialBalance float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request")
			return
		}
		// Check required fields in a fixed order
		if field := req.missingField(); field != "" {
			respondError(c, http.StatusBadRequest, "Missing required field: "+field)
			return
		}
		ctx := c.Request.Context()
		username := strings.TrimSpace(*req.Username)
		email := strings.TrimSpace(*req.Email)
		taken, err := users.ExistsByUsernameOrEmail(ctx, username, email)
		if err != nil {
			logrus.WithError(err).Error("Lookup of existing user failed")
			respondInternal(c, "Failed to register user")
			return
		}
		if taken {
			respondError(c, http.StatusBadRequest, "Username or email already exists")
			return
		}
		// Hash the password
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondInternal(c, "Failed to hash password")
			return
		}
		role := strings.TrimSpace(req.Role)
		if role == "" {
			role = domain.RoleCustomer // Default role
		}
		user := domain.User{
			UID:      strings.TrimSpace(*req.UID),
			Username: username,
			Email:    email,
			Password: string(hash),
			Balance:  initialBalance,
			Phone:    strings.TrimSpace(*req.Phone),
			Role:     role,
		}
		if err := users.CreateUser(ctx, &user); err != nil {
			// A concurrent registration can still win the unique index
			if errors.Is(err, storage.ErrAlreadyExists) {
				respondError(c, http.StatusBadRequest, "Username or email already exists")
				return
			}
			logrus.WithFields(logrus.Fields{
				"username": username,    // Requested username
				"error":    err.Error(), // Error message
			}).Error("Failed to create user")
			respondInternal(c, "Failed to register user")
			return
		}
		if rdb != nil {
			// Drop any balance cached under this username
			if err := utils.DeleteCache(ctx, rdb, utils.BalanceKey(user.Username)); err != nil {
				logrus.WithError(err).Warn("Failed to clear balance cache")
			}
		}
		logrus.WithFields(logrus.Fields{
			"uid":       user.UID,                        // User ID
			"username":  user.Username,                   // Username
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("User registered")
		respondSuccess(c, http.StatusCreated, "Registration successful!", gin.H{
			"uid":      user.UID,
			"username": user.Username,
			"email":    user.Email,
			"balance":  user.Balance,
		})
	}
}

// LoginHandler authenticates a user, records the session and returns a JWT in the body and a cookie
func LoginHandler(users storage.UserStore, tokens storage.TokenStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
			respondError(c, http.StatusBadRequest, "Username and password required")
			return
		}
		ctx := c.Request.Context()
		user, err := users.FindByUsername(ctx, req.Username) // Fetch user from storage
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				logrus.WithError(err).Error("Failed to fetch user")
				respondInternal(c, "Failed to fetch user")
				return
			}
			respondError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			respondError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		// Generate JWT token
		token, expiresAt, err := utils.GenerateJWT(user.Username, user.Role, user.UID, cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			respondInternal(c, "Failed to generate token")
			return
		}
		// Record the session so logout can revoke it
		session := domain.UserToken{TID: uuid.NewString(), Token: token, UID: user.UID, Expiry: expiresAt.UTC()}
		if err := tokens.SaveToken(ctx, session); err != nil {
			logrus.WithFields(logrus.Fields{
				"uid":   user.UID,    // User ID
				"error": err.Error(), // Error message
			}).Error("Failed to store session")
			respondInternal(c, "Failed to create session")
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, token, int(cfg.JWTTTL.Seconds()), "/", "", cfg.IsProd, true)
		c.JSON(http.StatusOK, gin.H{
			"status":  StatusSuccess,
			"message": "Login successful!",
			"token":   token,
			"data":    UserData{Username: user.Username, Role: user.Role, UID: user.UID},
		})
	}
}

// VerifyHandler reports whether the caller's token is still valid
func VerifyHandler(secret string, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := middleware.Authenticate(c.Request.Context(), middleware.ExtractToken(c), secret, rdb)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": StatusError, "valid": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": StatusSuccess,
			"valid":  true,
			"data":   UserData{Username: claims.Username(), Role: claims.Role, UID: claims.UID},
		})
	}
}

// LogoutHandler revokes the caller's token; it always succeeds
func LogoutHandler(tokens storage.TokenStore, secret string, rdb redis.Cmdable, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.ExtractToken(c)
		if token != "" {
			ctx := c.Request.Context()
			if err := tokens.DeleteToken(ctx, token); err != nil {
				logrus.WithError(err).Warn("Failed to delete session")
			}
			// Only tokens we could have issued are worth remembering
			if claims, err := utils.ParseJWT(token, secret); err == nil && rdb != nil && claims.ExpiresAt != nil {
				if err := utils.RevokeToken(ctx, rdb, token, claims.ExpiresAt.Time); err != nil {
					logrus.WithError(err).Warn("Failed to revoke token")
				}
			}
		}
		c.SetCookie(middleware.TokenCookie, "", -1, "/", "", secureCookie, true) // Expire the cookie
		respondSuccess(c, http.StatusOK, "Logged out successfully", nil)
	}
}
