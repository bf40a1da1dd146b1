package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/commerce-platform/stock-ledger/pkg/kafka"
	"github.com/commerce-platform/stock-ledger/pkg/mongodb"
	"github.com/commerce-platform/stock-ledger/pkg/outbox"
	"github.com/commerce-platform/stock-ledger/pkg/tracing"
)

const serviceName = "stock-ledger"

// Config is the full service configuration, loaded from the environment
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	Version  string

	Mongo   *mongodb.Config
	Kafka   *kafka.Config
	Outbox  *outbox.PublisherConfig
	Tracing *tracing.Config
}

// LoadConfig reads the service configuration from environment variables
func LoadConfig() *Config {
	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = getEnv("MONGODB_URI", mongoCfg.URI)
	mongoCfg.Database = getEnv("MONGODB_DATABASE", mongoCfg.Database)

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = strings.Split(getEnv("KAFKA_BROKERS", strings.Join(kafkaCfg.Brokers, ",")), ",")
	kafkaCfg.ClientID = getEnv("KAFKA_CLIENT_ID", kafkaCfg.ClientID)

	outboxCfg := outbox.DefaultPublisherConfig()
	outboxCfg.Interval = getDurationEnv("OUTBOX_POLL_INTERVAL", outboxCfg.Interval)
	outboxCfg.BatchSize = getIntEnv("OUTBOX_BATCH_SIZE", outboxCfg.BatchSize)

	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", tracingCfg.OTLPEndpoint)
	tracingCfg.Environment = getEnv("ENVIRONMENT", tracingCfg.Environment)
	tracingCfg.Enabled = getBoolEnv("TRACING_ENABLED", tracingCfg.Enabled)
	tracingCfg.SampleRate = getFloatEnv("TRACING_SAMPLE_RATE", tracingCfg.SampleRate)

	return &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("SERVICE_VERSION", "dev"),

		Mongo:   mongoCfg,
		Kafka:   kafkaCfg,
		Outbox:  outboxCfg,
		Tracing: tracingCfg,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
