package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	ChatChannelType    string

	// Backend configuration
	FunctionsBaseURL string
	DataBaseURL      string
	AuthBaseURL      string
	BackendAPIKey    string

	// Secure store configuration
	SecureStorePath       string
	SecureStorePassphrase string

	// Order session configuration
	OrderStaleAfter time.Duration

	// Confirmation polling configuration
	ConfirmInitialDelay  time.Duration
	ConfirmBackoffFactor float64
	ConfirmMaxDelay      time.Duration
	ConfirmMaxWait       time.Duration

	// Catalog cache configuration
	CatalogCacheTTL time.Duration

	// Outbound HTTP timeouts
	CheckoutTimeout time.Duration
	DataTimeout     time.Duration

	// Data-read circuit breaker
	DataBreakerMaxRequests  int
	DataBreakerInterval     time.Duration
	DataBreakerTimeout      time.Duration
	DataBreakerFailureRatio float64

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		ChatChannelType:    getEnv("CHAT_CHANNEL_TYPE", "commerce"),

		// Backend
		FunctionsBaseURL: getEnv("FUNCTIONS_BASE_URL", "https://functions.bottleup.example"),
		DataBaseURL:      getEnv("DATA_BASE_URL", "https://data.bottleup.example/rest/v1"),
		AuthBaseURL:      getEnv("AUTH_BASE_URL", "https://data.bottleup.example/auth/v1"),
		BackendAPIKey:    getEnv("BACKEND_API_KEY", ""),

		// Secure store
		SecureStorePath:       getEnv("SECURE_STORE_PATH", "secure-store.bin"),
		SecureStorePassphrase: getEnv("SECURE_STORE_PASSPHRASE", ""),

		// Order session. 20h client-side window against the backend's 24h
		// stale-order release, leaving a 4h safety margin.
		OrderStaleAfter: getEnvAsDuration("ORDER_STALE_AFTER", "20h"),

		// Confirmation polling
		ConfirmInitialDelay:  getEnvAsDuration("CONFIRM_INITIAL_DELAY", "500ms"),
		ConfirmBackoffFactor: getEnvAsFloat("CONFIRM_BACKOFF_FACTOR", 1.5),
		ConfirmMaxDelay:      getEnvAsDuration("CONFIRM_MAX_DELAY", "32s"),
		ConfirmMaxWait:       getEnvAsDuration("CONFIRM_MAX_WAIT", "0s"),

		// Catalog cache
		CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", "30s"),

		// Timeouts
		CheckoutTimeout: getEnvAsDuration("CHECKOUT_TIMEOUT", "10s"),
		DataTimeout:     getEnvAsDuration("DATA_TIMEOUT", "30s"),

		// Data-read circuit breaker. The open timeout matches the data
		// timeout so one slow generation of reads cannot pin it open.
		DataBreakerMaxRequests:  getEnvAsInt("DATA_BREAKER_MAX_REQUESTS", 100),
		DataBreakerInterval:     getEnvAsDuration("DATA_BREAKER_INTERVAL", "60s"),
		DataBreakerTimeout:      getEnvAsDuration("DATA_BREAKER_TIMEOUT", "30s"),
		DataBreakerFailureRatio: getEnvAsFloat("DATA_BREAKER_FAILURE_RATIO", 0.6),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
