package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
// Decision-policy constants live in a separate YAML file (see policy.go);
// this struct only carries wiring and infrastructure knobs.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	OrdersAPIURL    string
	CustomersAPIURL string
	NLPAPIURL       string
	PaymentsAPIURL  string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Session store
	RedisAddr     string // empty → in-memory store
	RedisPassword string
	SessionTTL    time.Duration

	// Policy file (decision constants). Empty → built-in defaults.
	PolicyFile string

	// JWT / Auth. Empty secret disables auth on the API.
	JWTSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OrdersAPIURL:    getEnv("ORDERS_API_URL", "http://localhost:8081"),
		CustomersAPIURL: getEnv("CUSTOMERS_API_URL", "http://localhost:8082"),
		NLPAPIURL:       getEnv("NLP_API_URL", "http://localhost:8090"),
		PaymentsAPIURL:  getEnv("PAYMENTS_API_URL", "http://localhost:8083"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),

		PolicyFile: getEnv("POLICY_FILE", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
