package config

import (
	"os"            // For environment variables
	"path/filepath" // For default client file locations
	"strconv"       // For string to int conversion
	"strings"       // For trimming and splitting values
	"time"          // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the API server configuration
type Config struct {
	AppPort        string        // Application port
	DBUser         string        // Database user
	DBPassword     string        // Database password
	DBHost         string        // Database host
	DBPort         string        // Database port
	DBName         string        // Database name
	JWTSecret      string        // JWT secret key
	JWTTTL         time.Duration // Lifetime of issued tokens
	RedisAddr      string        // Redis server address (empty disables caching)
	RedisPass      string        // Redis password
	RedisDB        int           // Redis database number
	BalanceTTL     time.Duration // How long a balance stays cached
	InitialBalance float64       // Balance credited on registration
	CORSOrigins    []string      // Origins allowed to call the API with credentials
	IsProd         bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:        fallback(os.Getenv("APP_PORT"), "5000"),
		DBUser:         fallback(os.Getenv("DB_USER"), "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBHost:         fallback(os.Getenv("DB_HOST"), "localhost"),
		DBPort:         fallback(os.Getenv("DB_PORT"), "3306"),
		DBName:         fallback(os.Getenv("DB_NAME"), "kodbank"),
		JWTSecret:      fallback(os.Getenv("JWT_SECRET"), "kodbank_signing_key_2024"),
		JWTTTL:         time.Duration(positiveInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        redisDB,
		BalanceTTL:     time.Duration(positiveInt("BALANCE_CACHE_SECONDS", 60)) * time.Second,
		InitialBalance: positiveFloat("INITIAL_BALANCE", 100000),
		CORSOrigins:    parseCSV(fallback(os.Getenv("CORS_ORIGINS"), "http://127.0.0.1:5000,http://localhost:5000")),
		IsProd:         os.Getenv("IS_PROD") == "true", // Release mode for gin
	}
}

// DSN builds the MySQL Data Source Name for GORM
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// ClientConfig holds the terminal client configuration
type ClientConfig struct {
	APIBase     string        // Base URL of the Kodbank API
	StorageFile string        // File holding the persisted session token
	LogFile     string        // File receiving client logs
	HTTPTimeout time.Duration // Per-request timeout
}

// LoadClientConfig loads the client configuration from environment variables
func LoadClientConfig() *ClientConfig {
	_ = godotenv.Load() // Load .env file if present
	home, err := os.UserHomeDir()
	if err != nil {
		home = "." // Fall back to the working directory
	}
	dir := filepath.Join(home, ".kodbank")
	return &ClientConfig{
		APIBase:     strings.TrimRight(fallback(os.Getenv("KODBANK_API_BASE"), "http://localhost:5000"), "/"),
		StorageFile: fallback(os.Getenv("KODBANK_STORAGE_FILE"), filepath.Join(dir, "storage.json")),
		LogFile:     fallback(os.Getenv("KODBANK_LOG_FILE"), filepath.Join(dir, "client.log")),
		HTTPTimeout: time.Duration(positiveInt("KODBANK_HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}

func positiveFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
