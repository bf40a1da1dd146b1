package projections

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

// StockSummary is the denormalized read model for one product (or one of
// its variants) at a location.
type StockSummary struct {
	ID           string    `bson:"_id" json:"id"`
	ProductID    string    `bson:"productId" json:"productId"`
	VariantID    string    `bson:"variantId,omitempty" json:"variantId,omitempty"`
	LocationID   string    `bson:"locationId" json:"locationId"`
	OnHand       int       `bson:"onHand" json:"onHand"`
	Allocated    int       `bson:"allocated" json:"allocated"`
	Available    int       `bson:"available" json:"available"`
	IsLowStock   bool      `bson:"isLowStock" json:"isLowStock"`
	IsOutOfStock bool      `bson:"isOutOfStock" json:"isOutOfStock"`
	RecordCount  int       `bson:"recordCount" json:"recordCount"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SummaryID builds the deterministic document id for a summary
func SummaryID(productID, variantID, locationID string) string {
	return fmt.Sprintf("%s|%s|%s", productID, variantID, locationID)
}

type recordSource interface {
	ListByProduct(ctx context.Context, productID, locationID string) ([]*domain.StockRecord, error)
}

type summaryStore interface {
	Upsert(ctx context.Context, summary *StockSummary) error
}

type projectorMetrics interface {
	ObserveProjectionRefresh(d time.Duration)
}

// StockProjector maintains stock summaries from the live records. It is
// refreshed eagerly after every commit and can also replay committed
// domain events.
type StockProjector struct {
	records   recordSource
	summaries summaryStore
	metrics   projectorMetrics
	logger    *logging.Logger

	// includeVariantStock folds variant records into the parent product
	// summary. Off by default: when a product carries both a base record
	// and variant records, adding them would double count.
	includeVariantStock bool
}

// ProjectorOption configures the projector
type ProjectorOption func(*StockProjector)

// WithVariantStockIncluded folds variant records into product totals
func WithVariantStockIncluded() ProjectorOption {
	return func(p *StockProjector) { p.includeVariantStock = true }
}

// WithProjectorMetrics wires refresh instrumentation
func WithProjectorMetrics(m projectorMetrics) ProjectorOption {
	return func(p *StockProjector) { p.metrics = m }
}

// NewStockProjector creates the projector
func NewStockProjector(records recordSource, summaries summaryStore, logger *logging.Logger, opts ...ProjectorOption) *StockProjector {
	p := &StockProjector{
		records:   records,
		summaries: summaries,
		logger:    logger.WithComponent("stock-projector"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh rebuilds the summaries touched by a change to the given key:
// the variant summary when the key names a variant, and always the
// product-level summary.
func (p *StockProjector) Refresh(ctx context.Context, key domain.RecordKey) error {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ObserveProjectionRefresh(time.Since(start))
		}
	}()

	records, err := p.records.ListByProduct(ctx, key.ProductID, key.LocationID)
	if err != nil {
		return fmt.Errorf("failed to load records for projection %s: %w", key, err)
	}

	if key.VariantID != "" {
		if err := p.refreshVariant(ctx, key, records); err != nil {
			return err
		}
	}
	return p.refreshProduct(ctx, key, records)
}

// Handle applies one committed domain event by refreshing the summaries
// for its record. Used when consuming the event stream instead of the
// eager in-process path.
func (p *StockProjector) Handle(ctx context.Context, event domain.DomainEvent) error {
	key, ok := eventKey(event)
	if !ok {
		p.logger.Debug("ignoring event with no record key", "eventType", event.EventType())
		return nil
	}
	return p.Refresh(ctx, key)
}

func (p *StockProjector) refreshVariant(ctx context.Context, key domain.RecordKey, records []*domain.StockRecord) error {
	for _, record := range records {
		if record.Key != key {
			continue
		}
		summary := &StockSummary{
			ID:           SummaryID(key.ProductID, key.VariantID, key.LocationID),
			ProductID:    key.ProductID,
			VariantID:    key.VariantID,
			LocationID:   key.LocationID,
			OnHand:       record.OnHand,
			Allocated:    record.Allocated,
			Available:    record.Available(),
			IsLowStock:   record.NeedsReorder(),
			IsOutOfStock: record.IsOutOfStock(),
			RecordCount:  1,
			UpdatedAt:    time.Now().UTC(),
		}
		return p.summaries.Upsert(ctx, summary)
	}
	return nil
}

func (p *StockProjector) refreshProduct(ctx context.Context, key domain.RecordKey, records []*domain.StockRecord) error {
	summary := &StockSummary{
		ID:         SummaryID(key.ProductID, "", key.LocationID),
		ProductID:  key.ProductID,
		LocationID: key.LocationID,
		UpdatedAt:  time.Now().UTC(),
	}

	for _, record := range records {
		if record.Key.LocationID != key.LocationID {
			continue
		}
		if record.Key.VariantID != "" && !p.includeVariantStock {
			continue
		}
		summary.OnHand += record.OnHand
		summary.Allocated += record.Allocated
		summary.Available += record.Available()
		summary.RecordCount++
		if record.NeedsReorder() {
			summary.IsLowStock = true
		}
	}
	summary.IsOutOfStock = summary.Available == 0

	return p.summaries.Upsert(ctx, summary)
}

func eventKey(event domain.DomainEvent) (domain.RecordKey, bool) {
	switch e := event.(type) {
	case domain.StockReceivedEvent:
		return e.Key, true
	case domain.StockAdjustedEvent:
		return e.Key, true
	case domain.StockCountedEvent:
		return e.Key, true
	case domain.StockAllocatedEvent:
		return e.Key, true
	case domain.StockFulfilledEvent:
		return e.Key, true
	case domain.StockReturnedEvent:
		return e.Key, true
	case domain.StockTransferredOutEvent:
		return e.Key, true
	case domain.ReservationReleasedEvent:
		return e.Key, true
	case domain.LowStockEvent:
		return e.Key, true
	case domain.OverstockEvent:
		return e.Key, true
	default:
		return domain.RecordKey{}, false
	}
}
