package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a stock movement
type TransactionKind string

const (
	KindReceipt     TransactionKind = "receipt"
	KindAdjustment  TransactionKind = "adjustment"
	KindTransfer    TransactionKind = "transfer"
	KindAllocation  TransactionKind = "allocation"
	KindFulfillment TransactionKind = "fulfillment"
	KindReturn      TransactionKind = "return"
	KindCount       TransactionKind = "count"
)

// IsValid reports whether the kind is one of the known transaction kinds
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindReceipt, KindAdjustment, KindTransfer, KindAllocation,
		KindFulfillment, KindReturn, KindCount:
		return true
	}
	return false
}

// allowsSignedQuantity reports whether the kind records a signed delta.
// Allocations are signed because a reservation release is recorded as a
// negative allocation, keeping the ledger the single source of the fold.
func (k TransactionKind) allowsSignedQuantity() bool {
	return k == KindAdjustment || k == KindCount || k == KindAllocation
}

// requiresReference reports whether the kind must carry a business reference
func (k TransactionKind) requiresReference() bool {
	switch k {
	case KindReceipt, KindAllocation, KindFulfillment, KindTransfer:
		return true
	}
	return false
}

// RecordKey identifies one stock record: a product (or one of its
// variants) at one stock location.
type RecordKey struct {
	ProductID  string `bson:"productId" json:"productId"`
	VariantID  string `bson:"variantId,omitempty" json:"variantId,omitempty"`
	LocationID string `bson:"locationId" json:"locationId"`
}

// Validate checks the key has the required parts
func (k RecordKey) Validate() error {
	if k.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRecordKey)
	}
	if k.LocationID == "" {
		return fmt.Errorf("%w: location id is required", ErrInvalidRecordKey)
	}
	return nil
}

// String renders the key as product[/variant]@location
func (k RecordKey) String() string {
	if k.VariantID != "" {
		return fmt.Sprintf("%s/%s@%s", k.ProductID, k.VariantID, k.LocationID)
	}
	return fmt.Sprintf("%s@%s", k.ProductID, k.LocationID)
}

// Reference ties a ledger entry to the business document that caused it,
// such as a purchase order, sales order or cycle count.
type Reference struct {
	ID   string `bson:"id" json:"id"`
	Type string `bson:"type,omitempty" json:"type,omitempty"`
}

// IsZero reports whether the reference is empty
func (r Reference) IsZero() bool {
	return r.ID == ""
}

// LedgerEntry is one immutable stock movement. Entries are append-only;
// corrections are new entries, never edits.
type LedgerEntry struct {
	ID             string          `bson:"_id" json:"id"`
	Key            RecordKey       `bson:"key" json:"key"`
	Kind           TransactionKind `bson:"kind" json:"kind"`
	Quantity       int             `bson:"quantity" json:"quantity"`
	Reference      Reference       `bson:"reference,omitempty" json:"reference,omitempty"`
	Actor          string          `bson:"actor,omitempty" json:"actor,omitempty"`
	Note           string          `bson:"note,omitempty" json:"note,omitempty"`
	OnHandAfter    int             `bson:"onHandAfter" json:"onHandAfter"`
	AllocatedAfter int             `bson:"allocatedAfter" json:"allocatedAfter"`
	RecordedAt     time.Time       `bson:"recordedAt" json:"recordedAt"`
}

// NewLedgerEntry validates and constructs a ledger entry. The counter
// snapshot fields are filled in when the entry is folded into its record.
func NewLedgerEntry(key RecordKey, kind TransactionKind, quantity int, ref Reference, actor, note string) (*LedgerEntry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransactionKind, kind)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be non-zero", ErrInvalidQuantity)
	}
	if quantity < 0 && !kind.allowsSignedQuantity() {
		return nil, fmt.Errorf("%w: %s quantity must be positive", ErrInvalidQuantity, kind)
	}
	if kind.requiresReference() && ref.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrMissingReference, kind)
	}
	if kind == KindAdjustment && note == "" {
		return nil, ErrNoteRequired
	}

	return &LedgerEntry{
		ID:         uuid.New().String(),
		Key:        key,
		Kind:       kind,
		Quantity:   quantity,
		Reference:  ref,
		Actor:      actor,
		Note:       note,
		RecordedAt: time.Now().UTC(),
	}, nil
}

// snapshot captures the post-fold counters on the entry
func (e *LedgerEntry) snapshot(r *StockRecord) {
	e.OnHandAfter = r.OnHand
	e.AllocatedAfter = r.Allocated
}
