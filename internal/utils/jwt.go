package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Unique token IDs
)

// JWT Claims; the subject carries the username
type Claims struct {
	Role                 string `json:"role"` // Custom claim for the user role
	UID                  string `json:"uid"`  // Custom claim for the user ID
	jwt.RegisteredClaims        // Standard JWT claims
}

// Username returns the subject of the token
func (c *Claims) Username() string {
	return c.Subject
}

// GenerateJWT creates a signed token for a user and returns it with its expiry
func GenerateJWT(username, role, uid, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	// Set token claims
	claims := Claims{
		Role: role, // Custom claim for role
		UID:  uid,  // Custom claim for user ID
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),              // Each login gets its own token
			Subject:   username,                      // Token subject
			ExpiresAt: jwt.NewNumericDate(expiresAt), // Expiry
			IssuedAt:  jwt.NewNumericDate(now),       // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
