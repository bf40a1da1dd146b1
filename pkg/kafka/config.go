package kafka

import "time"

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	ClientID     string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int
	Async        bool
}

// DefaultConfig returns sensible producer defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "stock-ledger",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1, // all in-sync replicas
		Async:        false,
	}
}

// Topics lists the topics this service produces to
var Topics = struct {
	StockEvents       string
	ReservationEvents string
	ReorderAlerts     string
}{
	StockEvents:       "commerce.stock.events",
	ReservationEvents: "commerce.reservation.events",
	ReorderAlerts:     "commerce.stock.reorder-alerts",
}
