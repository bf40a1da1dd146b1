package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default replenishment settings for new records
const (
	DefaultReorderPoint    = 5
	DefaultReorderQuantity = 10
	DefaultMaxStockLevel   = 100
)

// StockRecord holds the current counters for one product (or variant) at
// one location. The counters are never edited directly: they are the fold
// of the record's ledger entries, and Fold is the only way to move them.
type StockRecord struct {
	ID  string    `bson:"_id" json:"id"`
	Key RecordKey `bson:"key" json:"key"`

	OnHand    int `bson:"onHand" json:"onHand"`
	Allocated int `bson:"allocated" json:"allocated"`

	ReorderPoint     int        `bson:"reorderPoint" json:"reorderPoint"`
	ReorderQuantity  int        `bson:"reorderQuantity" json:"reorderQuantity"`
	MaxStockLevel    int        `bson:"maxStockLevel" json:"maxStockLevel"`
	TrackingEnabled  bool       `bson:"trackingEnabled" json:"trackingEnabled"`
	BackorderEnabled bool       `bson:"backorderEnabled" json:"backorderEnabled"`
	BinLocation      string     `bson:"binLocation,omitempty" json:"binLocation,omitempty"`
	LastCounted      *time.Time `bson:"lastCounted,omitempty" json:"lastCounted,omitempty"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewStockRecord creates an empty record with default replenishment settings
func NewStockRecord(key RecordKey) (*StockRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &StockRecord{
		ID:              uuid.New().String(),
		Key:             key,
		ReorderPoint:    DefaultReorderPoint,
		ReorderQuantity: DefaultReorderQuantity,
		MaxStockLevel:   DefaultMaxStockLevel,
		TrackingEnabled: true,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Available returns the sellable quantity. Backordering can push allocated
// above on-hand, so the result floors at zero.
func (r *StockRecord) Available() int {
	available := r.OnHand - r.Allocated
	if available < 0 {
		return 0
	}
	return available
}

// Fold applies one ledger entry to the counters and stamps the entry with
// the resulting snapshot. Underflow is rejected: a movement that would
// drive a counter negative fails with ErrInsufficientStock and leaves the
// record unchanged.
func (r *StockRecord) Fold(entry *LedgerEntry) error {
	if !r.TrackingEnabled {
		return ErrTrackingDisabled
	}
	if entry.Key != r.Key {
		return fmt.Errorf("%w: entry key %s does not match record key %s",
			ErrInvalidRecordKey, entry.Key, r.Key)
	}

	onHand, allocated := r.OnHand, r.Allocated

	switch entry.Kind {
	case KindReceipt, KindReturn:
		onHand += entry.Quantity
	case KindAdjustment, KindCount:
		onHand += entry.Quantity
		if onHand < 0 {
			return fmt.Errorf("%w: %s of %d would drive on-hand below zero (on-hand %d)",
				ErrInsufficientStock, entry.Kind, entry.Quantity, r.OnHand)
		}
	case KindAllocation:
		// Positive quantity reserves stock; negative quantity releases a
		// reservation back to the available pool.
		if entry.Quantity > 0 && !r.BackorderEnabled && entry.Quantity > r.Available() {
			return fmt.Errorf("%w: requested %d, available %d",
				ErrInsufficientStock, entry.Quantity, r.Available())
		}
		allocated += entry.Quantity
		if allocated < 0 {
			return fmt.Errorf("%w: release of %d exceeds allocated %d",
				ErrInsufficientStock, -entry.Quantity, r.Allocated)
		}
	case KindFulfillment:
		if entry.Quantity > allocated {
			return fmt.Errorf("%w: fulfillment of %d exceeds allocated %d",
				ErrInsufficientStock, entry.Quantity, allocated)
		}
		if entry.Quantity > onHand {
			return fmt.Errorf("%w: fulfillment of %d exceeds on-hand %d",
				ErrInsufficientStock, entry.Quantity, onHand)
		}
		onHand -= entry.Quantity
		allocated -= entry.Quantity
	case KindTransfer:
		if entry.Quantity > r.Available() {
			return fmt.Errorf("%w: transfer of %d exceeds available %d",
				ErrInsufficientStock, entry.Quantity, r.Available())
		}
		onHand -= entry.Quantity
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransactionKind, entry.Kind)
	}

	r.OnHand = onHand
	r.Allocated = allocated
	if entry.Kind == KindCount {
		counted := entry.RecordedAt
		r.LastCounted = &counted
	}
	r.UpdatedAt = time.Now().UTC()

	entry.snapshot(r)
	return nil
}

// Replay refolds the given entries onto a zeroed copy of the record and
// returns the result. The copy keeps the record's configuration so
// backorder-enabled histories replay the way they were recorded.
func (r *StockRecord) Replay(entries []*LedgerEntry) (*StockRecord, error) {
	replayed := *r
	replayed.OnHand = 0
	replayed.Allocated = 0
	replayed.LastCounted = nil

	for _, entry := range entries {
		e := *entry
		if err := replayed.Fold(&e); err != nil {
			return nil, fmt.Errorf("replay failed at entry %s: %w", entry.ID, err)
		}
	}
	return &replayed, nil
}

// NeedsReorder reports whether the record is at or below its reorder point
func (r *StockRecord) NeedsReorder() bool {
	return r.TrackingEnabled && r.OnHand <= r.ReorderPoint
}

// SuggestedReorderQuantity returns how much to reorder, capped so the
// record does not exceed its max stock level.
func (r *StockRecord) SuggestedReorderQuantity() int {
	if r.MaxStockLevel <= 0 {
		return r.ReorderQuantity
	}
	headroom := r.MaxStockLevel - r.OnHand
	if headroom <= 0 {
		return 0
	}
	if headroom < r.ReorderQuantity {
		return headroom
	}
	return r.ReorderQuantity
}

// IsOverstocked reports whether on-hand exceeds the max stock level
func (r *StockRecord) IsOverstocked() bool {
	return r.MaxStockLevel > 0 && r.OnHand > r.MaxStockLevel
}

// IsOutOfStock reports whether nothing is available to sell
func (r *StockRecord) IsOutOfStock() bool {
	return r.Available() == 0
}
