package app

import (
	"os"
	"strconv"
	"time"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers     string
	CartEventsTopic  string
	StockEventsTopic string
	ConsumerGroup    string

	RequestTimeout time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает базовые настройки сервиса.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		CartEventsTopic:     "carts.cart.events",
		StockEventsTopic:    "carts.stock.events",
		ConsumerGroup:       "cart-service",
		RequestTimeout:      30 * time.Second,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   5,
		OutboxRetryDelay:    200 * time.Millisecond,
	}
}

// ReadConfig собирает конфигурацию из переменных окружения поверх значений
// по умолчанию. Все переменные имеют префикс CART_.
func ReadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = getEnv("CART_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getEnv("CART_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = getEnv("CART_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = getEnv("CART_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = getEnvBool("CART_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	cfg.KafkaBrokers = getEnv("CART_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.CartEventsTopic = getEnv("CART_EVENTS_TOPIC", cfg.CartEventsTopic)
	cfg.StockEventsTopic = getEnv("CART_STOCK_EVENTS_TOPIC", cfg.StockEventsTopic)
	cfg.ConsumerGroup = getEnv("CART_CONSUMER_GROUP", cfg.ConsumerGroup)
	cfg.RequestTimeout = getEnvDuration("CART_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.OutboxPollInterval = getEnvDuration("CART_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getEnvInt("CART_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = getEnvInt("CART_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = getEnvDuration("CART_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
