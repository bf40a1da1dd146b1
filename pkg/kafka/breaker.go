package kafka

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/commerce-platform/stock-ledger/pkg/cloudevents"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

// BreakerProducer wraps a Producer with a circuit breaker so a broker
// outage fails fast instead of stalling outbox publication.
type BreakerProducer struct {
	producer *Producer
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
}

// NewBreakerProducer creates a circuit-breaker protected producer
func NewBreakerProducer(producer *Producer, logger *logging.Logger) *BreakerProducer {
	log := logger.WithComponent("kafka-breaker")

	settings := gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= 5 || failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerProducer{
		producer: producer,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   log,
	}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *BreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	return err
}

// PublishBatch publishes a batch with circuit breaker protection
func (p *BreakerProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.Event) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishBatch(ctx, topic, events)
	})
	return err
}

// State returns the current breaker state
func (p *BreakerProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying producer
func (p *BreakerProducer) Close() error {
	return p.producer.Close()
}
