package outbox

import (
	"context"
	"time"

	"github.com/commerce-platform/stock-ledger/pkg/cloudevents"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

// eventPublisher is the broker-facing side of the publisher
type eventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error
}

// publisherMetrics reports the unpublished backlog and publish outcomes
type publisherMetrics interface {
	SetOutboxPending(n float64)
	RecordEventPublished(status string)
}

// Publisher polls the outbox and relays unpublished events to the broker
type Publisher struct {
	repo      Repository
	producer  eventPublisher
	metrics   publisherMetrics
	logger    *logging.Logger
	interval  time.Duration
	batchSize int

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// PublisherConfig holds polling configuration
type PublisherConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultPublisherConfig returns default polling settings
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		Interval:  2 * time.Second,
		BatchSize: 50,
	}
}

// NewPublisher creates an outbox publisher. metrics may be nil.
func NewPublisher(repo Repository, producer eventPublisher, metrics publisherMetrics, logger *logging.Logger, cfg *PublisherConfig) *Publisher {
	if cfg == nil {
		cfg = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:      repo,
		producer:  producer,
		metrics:   metrics,
		logger:    logger.WithComponent("outbox-publisher"),
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins polling in a background goroutine
func (p *Publisher) Start(ctx context.Context) {
	go p.run(ctx)
	p.logger.Info("outbox publisher started", "interval", p.interval.String(), "batchSize", p.batchSize)
}

// Stop halts polling and waits for the current batch to finish
func (p *Publisher) Stop() {
	close(p.stopCh)
	<-p.stoppedCh
	p.logger.Info("outbox publisher stopped")
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Publisher) processBatch(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("failed to fetch unpublished events")
		return
	}
	if len(events) == 0 {
		p.reportBacklog(ctx)
		return
	}

	for _, event := range events {
		envelope, err := event.Envelope()
		if err != nil {
			p.logger.WithError(err).Error("failed to decode outbox payload", "eventId", event.ID)
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("failed to record retry", "eventId", event.ID)
			}
			continue
		}

		if err := p.producer.PublishEvent(ctx, event.Topic, envelope); err != nil {
			p.logger.WithError(err).Warn("failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"retryCount", event.RetryCount,
			)
			p.recordOutcome("failure")
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("failed to record retry", "eventId", event.ID)
			}
			continue
		}
		p.recordOutcome("success")

		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("failed to mark event published", "eventId", event.ID)
		}
	}

	p.reportBacklog(ctx)
}

func (p *Publisher) recordOutcome(status string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(status)
	}
}

func (p *Publisher) reportBacklog(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	pending, err := p.repo.CountUnpublished(ctx)
	if err != nil {
		return
	}
	p.metrics.SetOutboxPending(float64(pending))
}
