package domain

import "time"

// Event type names, used for routing and as CloudEvents types
const (
	EventTypeStockReceived       = "commerce.stock.received"
	EventTypeStockAdjusted       = "commerce.stock.adjusted"
	EventTypeStockCounted        = "commerce.stock.counted"
	EventTypeStockAllocated      = "commerce.stock.allocated"
	EventTypeStockFulfilled      = "commerce.stock.fulfilled"
	EventTypeStockReturned       = "commerce.stock.returned"
	EventTypeStockTransferredOut = "commerce.stock.transferred-out"
	EventTypeReservationReleased = "commerce.stock.reservation-released"
	EventTypeLowStock            = "commerce.stock.low-stock"
	EventTypeOverstock           = "commerce.stock.overstock"
)

// DomainEvent is implemented by all events this service emits
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// StockLevelChanged carries the shared payload of every movement event:
// which record moved, by how much, and where the counters landed.
type StockLevelChanged struct {
	EntryID   string    `json:"entryId"`
	Key       RecordKey `json:"key"`
	Kind      string    `json:"kind"`
	Quantity  int       `json:"quantity"`
	Reference Reference `json:"reference,omitempty"`
	OnHand    int       `json:"onHand"`
	Allocated int       `json:"allocated"`
	Available int       `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}

// AggregateID identifies the stock record the event belongs to
func (e StockLevelChanged) AggregateID() string { return e.Key.String() }

// OccurredAt returns the event time
func (e StockLevelChanged) OccurredAt() time.Time { return e.Timestamp }

// StockReceivedEvent is emitted for receipt entries
type StockReceivedEvent struct{ StockLevelChanged }

func (StockReceivedEvent) EventType() string { return EventTypeStockReceived }

// StockAdjustedEvent is emitted for manual adjustment entries
type StockAdjustedEvent struct {
	StockLevelChanged
	Note string `json:"note"`
}

func (StockAdjustedEvent) EventType() string { return EventTypeStockAdjusted }

// StockCountedEvent is emitted when a physical count is recorded
type StockCountedEvent struct {
	StockLevelChanged
	CountedQuantity int `json:"countedQuantity"`
}

func (StockCountedEvent) EventType() string { return EventTypeStockCounted }

// StockAllocatedEvent is emitted when stock is reserved
type StockAllocatedEvent struct {
	StockLevelChanged
	ReservationID string `json:"reservationId"`
	Backordered   bool   `json:"backordered"`
}

func (StockAllocatedEvent) EventType() string { return EventTypeStockAllocated }

// StockFulfilledEvent is emitted when reserved stock ships
type StockFulfilledEvent struct {
	StockLevelChanged
	ReservationID string `json:"reservationId"`
	Outstanding   int    `json:"outstanding"`
}

func (StockFulfilledEvent) EventType() string { return EventTypeStockFulfilled }

// StockReturnedEvent is emitted for customer returns
type StockReturnedEvent struct{ StockLevelChanged }

func (StockReturnedEvent) EventType() string { return EventTypeStockReturned }

// StockTransferredOutEvent is emitted for the outbound leg of a transfer
type StockTransferredOutEvent struct {
	StockLevelChanged
	DestinationLocationID string `json:"destinationLocationId"`
}

func (StockTransferredOutEvent) EventType() string { return EventTypeStockTransferredOut }

// ReservationReleasedEvent is emitted when a reservation is cancelled
type ReservationReleasedEvent struct {
	StockLevelChanged
	ReservationID    string `json:"reservationId"`
	ReleasedQuantity int    `json:"releasedQuantity"`
}

func (ReservationReleasedEvent) EventType() string { return EventTypeReservationReleased }

// LowStockEvent is emitted when a fold drops on-hand to or below the
// reorder point.
type LowStockEvent struct {
	Key               RecordKey `json:"key"`
	OnHand            int       `json:"onHand"`
	Available         int       `json:"available"`
	ReorderPoint      int       `json:"reorderPoint"`
	SuggestedQuantity int       `json:"suggestedQuantity"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e LowStockEvent) EventType() string     { return EventTypeLowStock }
func (e LowStockEvent) AggregateID() string   { return e.Key.String() }
func (e LowStockEvent) OccurredAt() time.Time { return e.Timestamp }

// OverstockEvent is emitted when a receipt pushes on-hand past the max
// stock level. Receipts still succeed; the level is advisory.
type OverstockEvent struct {
	Key           RecordKey `json:"key"`
	OnHand        int       `json:"onHand"`
	MaxStockLevel int       `json:"maxStockLevel"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e OverstockEvent) EventType() string     { return EventTypeOverstock }
func (e OverstockEvent) AggregateID() string   { return e.Key.String() }
func (e OverstockEvent) OccurredAt() time.Time { return e.Timestamp }
