package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/commerce-platform/stock-ledger/pkg/cloudevents"
)

// Producer publishes CloudEvents envelopes to Kafka, one writer per topic.
// Messages are keyed by event subject so all events for one stock record
// land on the same partition in order.
type Producer struct {
	config  *Config
	mu      sync.RWMutex
	writers map[string]*kafka.Writer
}

// NewProducer creates a producer from config
func NewProducer(config *Config) *Producer {
	return &Producer{
		config:  config,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.RLock()
	w, ok := p.writers[topic]
	p.mu.RUnlock()
	if ok {
		return w
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}

	w = &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		WriteTimeout: p.config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
		Async:        p.config.Async,
	}
	p.writers[topic] = w
	return w
}

// PublishEvent publishes a single CloudEvent to the topic
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: payload,
		Time:  event.Time,
		Headers: []kafka.Header{
			{Key: "ce-id", Value: []byte(event.ID)},
			{Key: "ce-type", Value: []byte(event.Type)},
			{Key: "ce-source", Value: []byte(event.Source)},
			{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
			{Key: "content-type", Value: []byte(event.DataContentType)},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key: "ce-correlationid", Value: []byte(event.CorrelationID),
		})
	}

	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.ID, topic, err)
	}
	return nil
}

// PublishBatch publishes multiple events to the topic in one write
func (p *Producer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := event.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Subject),
			Value: payload,
			Time:  event.Time,
			Headers: []kafka.Header{
				{Key: "ce-id", Value: []byte(event.ID)},
				{Key: "ce-type", Value: []byte(event.Type)},
				{Key: "ce-source", Value: []byte(event.Source)},
				{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
				{Key: "content-type", Value: []byte(event.DataContentType)},
			},
		})
	}

	if err := p.writer(topic).WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish batch of %d events to %s: %w", len(events), topic, err)
	}
	return nil
}

// Close closes all topic writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer for %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}
