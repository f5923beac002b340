package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Env            string
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// WebSocket
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// CRM
	QontakBaseURL    string
	QontakAPIToken   string
	QontakTaskFilter string
	QontakPerPage    int
	FetchTimeout     time.Duration
	RefreshInterval  time.Duration

	// Auth
	SkipAuth           bool
	OIDCIssuer         string
	VerifyJWTSignature bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		QontakBaseURL:    getEnv("QONTAK_BASE_URL", "https://app.qontak.com"),
		QontakAPIToken:   getEnv("QONTAK_API_TOKEN", ""),
		QontakTaskFilter: getEnv("QONTAK_TASK_FILTER", "alltask"),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := getSeconds("WS_READ_TIMEOUT", "60")
	if err != nil {
		return nil, err
	}
	config.WSReadTimeout = wsReadTimeout

	wsWriteTimeout, err := getSeconds("WS_WRITE_TIMEOUT", "10")
	if err != nil {
		return nil, err
	}
	config.WSWriteTimeout = wsWriteTimeout

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// CRM fetch settings
	perPage, err := strconv.Atoi(getEnv("QONTAK_PER_PAGE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid QONTAK_PER_PAGE: %w", err)
	}
	if perPage <= 0 {
		return nil, fmt.Errorf("invalid QONTAK_PER_PAGE: must be positive, got %d", perPage)
	}
	config.QontakPerPage = perPage

	fetchTimeout, err := getSeconds("FETCH_TIMEOUT", "30")
	if err != nil {
		return nil, err
	}
	if fetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: must be positive")
	}
	config.FetchTimeout = fetchTimeout

	refreshInterval, err := getSeconds("REFRESH_INTERVAL", "0")
	if err != nil {
		return nil, err
	}
	if refreshInterval < 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: must not be negative")
	}
	config.RefreshInterval = refreshInterval

	// Auth flags
	config.SkipAuth, err = strconv.ParseBool(getEnv("SKIP_AUTH", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SKIP_AUTH: %w", err)
	}
	config.VerifyJWTSignature, err = strconv.ParseBool(getEnv("VERIFY_JWT_SIGNATURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFY_JWT_SIGNATURE: %w", err)
	}
	// Outside development, signatures are always verified
	if config.Env != "development" {
		config.VerifyJWTSignature = true
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getSeconds reads a whole number of seconds
func getSeconds(key, defaultValue string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}
