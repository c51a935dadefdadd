package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	DataDir     string

	// Credential configuration
	TokenSecret string
	TokenTTL    time.Duration

	// Payment gateway configuration
	OmisePublicKey    string
	OmiseSecretKey    string
	PaymentCurrency   string
	PaymentSourceType string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// RabbitMQ configuration
	RabbitURL          string
	SettlementExchange string

	// Settlement configuration
	SettlementLockTTL time.Duration
	ReconcileInterval time.Duration

	// Security
	RateLimitPerMinute int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
	MonitorPeriod time.Duration
}

func LoadConfig() *Config {
	// a missing .env file is fine; the environment wins either way
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DataDir:     getEnv("DB_DIR", "./pb_data"),

		// Credentials
		TokenSecret: getEnv("TOKEN_SECRET", ""),
		TokenTTL:    getEnvAsDuration("TOKEN_TTL", "24h"),

		// Payment gateway
		OmisePublicKey:    getEnv("OMISE_PUBLIC_KEY", ""),
		OmiseSecretKey:    getEnv("OMISE_SECRET_KEY", ""),
		PaymentCurrency:   getEnv("PAYMENT_CURRENCY", "thb"),
		PaymentSourceType: getEnv("PAYMENT_SOURCE_TYPE", "promptpay"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// RabbitMQ
		RabbitURL:          getEnv("RABBIT_URL", ""),
		SettlementExchange: getEnv("SETTLEMENT_EXCHANGE", "bike-market.settlements"),

		// Settlement
		SettlementLockTTL: getEnvAsDuration("SETTLEMENT_LOCK_TTL", "2m"),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", "5m"),

		// Security
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
		MonitorPeriod: getEnvAsDuration("MONITOR_PERIOD", "30s"),
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
