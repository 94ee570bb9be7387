package utils

import (
	"context"       // Context for Redis operations
	"crypto/sha256" // Hashing tokens into short keys
	"encoding/hex"  // Hex encoding of hashes
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// BalanceKey is the cache key holding a user's balance
func BalanceKey(username string) string {
	return "balance:user:" + username
}

// revokedKey is the denylist key for a logged-out token
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:token:" + hex.EncodeToString(sum[:])
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// RevokeToken denylists a token until it would have expired anyway
func RevokeToken(ctx context.Context, rdb redis.Cmdable, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // Already expired, nothing to remember
	}
	return rdb.Set(ctx, revokedKey(token), 1, ttl).Err()
}

// IsRevoked reports whether a token was denylisted at logout
func IsRevoked(ctx context.Context, rdb redis.Cmdable, token string) (bool, error) {
	n, err := rdb.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
