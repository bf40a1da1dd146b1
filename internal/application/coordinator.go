package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

// Repository interfaces are declared here, on the consumer side; the
// mongodb package provides the implementations.

type stockRecordRepository interface {
	FindByKey(ctx context.Context, key domain.RecordKey) (*domain.StockRecord, error)
	FindBelowReorderPoint(ctx context.Context, locationID string) ([]*domain.StockRecord, error)
}

type ledgerEntryRepository interface {
	FindByReference(ctx context.Context, key domain.RecordKey, kind domain.TransactionKind, referenceID string) (*domain.LedgerEntry, error)
	ListByKey(ctx context.Context, key domain.RecordKey, limit, offset int64) ([]*domain.LedgerEntry, error)
}

type reservationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
}

// unitOfWork commits a ledger mutation atomically, including staging the
// domain events on the outbox.
type unitOfWork interface {
	Commit(ctx context.Context, commit *domain.Commit) error
}

// projectionRefresher rebuilds the read model for a record after a commit
type projectionRefresher interface {
	Refresh(ctx context.Context, key domain.RecordKey) error
}

type coordinatorMetrics interface {
	RecordLedgerEntry(kind string)
	RecordStockRejection(reason string)
	ObserveLockWait(d time.Duration)
}

// DefaultLockTimeout bounds how long a mutation waits for its record lock
const DefaultLockTimeout = 3 * time.Second

// StockMovementResult is the outcome of a coordinator operation. Replayed
// marks an idempotent no-op: the reference was already in the ledger and
// Entry is the original entry.
type StockMovementResult struct {
	Record      *domain.StockRecord
	Entry       *domain.LedgerEntry
	Reservation *domain.Reservation
	Replayed    bool
}

// TransferResult holds both audited legs of a stock transfer
type TransferResult struct {
	Outbound *StockMovementResult
	Inbound  *StockMovementResult
}

// ReservationCoordinator orchestrates all ledger mutations. It serializes
// writes per record key, enforces idempotency by business reference and
// commits record, entry, reservation and events in one unit of work.
type ReservationCoordinator struct {
	records      stockRecordRepository
	entries      ledgerEntryRepository
	reservations reservationRepository
	uow          unitOfWork
	projections  projectionRefresher
	metrics      coordinatorMetrics
	locks        *keyedLock
	lockTimeout  time.Duration
	logger       *logging.Logger
}

// CoordinatorOption configures optional coordinator collaborators
type CoordinatorOption func(*ReservationCoordinator)

// WithProjections wires eager read-model refreshes after commits
func WithProjections(p projectionRefresher) CoordinatorOption {
	return func(c *ReservationCoordinator) { c.projections = p }
}

// WithMetrics wires coordinator instrumentation
func WithMetrics(m coordinatorMetrics) CoordinatorOption {
	return func(c *ReservationCoordinator) { c.metrics = m }
}

// WithLockTimeout overrides the record lock acquisition timeout
func WithLockTimeout(d time.Duration) CoordinatorOption {
	return func(c *ReservationCoordinator) { c.lockTimeout = d }
}

// NewReservationCoordinator creates a coordinator
func NewReservationCoordinator(
	records stockRecordRepository,
	entries ledgerEntryRepository,
	reservations reservationRepository,
	uow unitOfWork,
	logger *logging.Logger,
	opts ...CoordinatorOption,
) *ReservationCoordinator {
	c := &ReservationCoordinator{
		records:      records,
		entries:      entries,
		reservations: reservations,
		uow:          uow,
		locks:        newKeyedLock(),
		lockTimeout:  DefaultLockTimeout,
		logger:       logger.WithComponent("reservation-coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// movement describes one ledger mutation for the shared execute path.
// prepare (optional) derives the quantity from the locked record; build
// (optional) attaches a reservation and produces the primary domain event.
type movement struct {
	key             domain.RecordKey
	kind            domain.TransactionKind
	quantity        int
	ref             domain.Reference
	actor           string
	note            string
	createIfMissing bool
	binLocation     string
	prepare         func(ctx context.Context, record *domain.StockRecord) (int, error)
	build           func(ctx context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error)
}

// ReceiveStock books inbound stock, creating the record on first receipt
func (c *ReservationCoordinator) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*StockMovementResult, error) {
	return c.execute(ctx, movement{
		key:             cmd.key(),
		kind:            domain.KindReceipt,
		quantity:        cmd.Quantity,
		ref:             cmd.reference(),
		actor:           cmd.Actor,
		note:            cmd.Note,
		createIfMissing: true,
		binLocation:     cmd.BinLocation,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockReceivedEvent{StockLevelChanged: movementPayload(entry, record)}, nil
		},
	})
}

// RecordAdjustment books a signed manual correction
func (c *ReservationCoordinator) RecordAdjustment(ctx context.Context, cmd AdjustStockCommand) (*StockMovementResult, error) {
	return c.execute(ctx, movement{
		key:      cmd.key(),
		kind:     domain.KindAdjustment,
		quantity: cmd.Quantity,
		ref:      cmd.reference(),
		actor:    cmd.Actor,
		note:     cmd.Note,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockAdjustedEvent{
				StockLevelChanged: movementPayload(entry, record),
				Note:              entry.Note,
			}, nil
		},
	})
}

// RecordCount books a physical count as the signed delta between the
// counted quantity and the current on-hand. A count matching on-hand
// commits no entry but still stamps the record's last-counted time.
func (c *ReservationCoordinator) RecordCount(ctx context.Context, cmd RecordCountCommand) (*StockMovementResult, error) {
	if cmd.CountedQuantity < 0 {
		return nil, fmt.Errorf("%w: counted quantity cannot be negative", domain.ErrInvalidQuantity)
	}
	return c.execute(ctx, movement{
		key:   cmd.key(),
		kind:  domain.KindCount,
		ref:   cmd.reference(),
		actor: cmd.Actor,
		note:  cmd.Note,
		prepare: func(_ context.Context, record *domain.StockRecord) (int, error) {
			return cmd.CountedQuantity - record.OnHand, nil
		},
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockCountedEvent{
				StockLevelChanged: movementPayload(entry, record),
				CountedQuantity:   cmd.CountedQuantity,
			}, nil
		},
	})
}

// ReturnStock books a customer return into on-hand stock
func (c *ReservationCoordinator) ReturnStock(ctx context.Context, cmd ReturnStockCommand) (*StockMovementResult, error) {
	return c.execute(ctx, movement{
		key:      cmd.key(),
		kind:     domain.KindReturn,
		quantity: cmd.Quantity,
		ref:      cmd.reference(),
		actor:    cmd.Actor,
		note:     cmd.Note,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockReturnedEvent{StockLevelChanged: movementPayload(entry, record)}, nil
		},
	})
}

// AllocateStock reserves stock for an order and opens a reservation
func (c *ReservationCoordinator) AllocateStock(ctx context.Context, cmd AllocateStockCommand) (*StockMovementResult, error) {
	if cmd.Quantity <= 0 {
		return nil, fmt.Errorf("%w: allocation quantity must be positive", domain.ErrInvalidQuantity)
	}
	return c.execute(ctx, movement{
		key:      cmd.key(),
		kind:     domain.KindAllocation,
		quantity: cmd.Quantity,
		ref:      cmd.reference(),
		actor:    cmd.Actor,
		note:     cmd.Note,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			reservation := domain.NewReservation(entry)
			return reservation, domain.StockAllocatedEvent{
				StockLevelChanged: movementPayload(entry, record),
				ReservationID:     reservation.ID,
				Backordered:       record.Allocated > record.OnHand,
			}, nil
		},
	})
}

// FulfillReservation ships units against a reservation. The command
// reference identifies the shipment, so each partial fulfillment is
// idempotent on its own reference.
func (c *ReservationCoordinator) FulfillReservation(ctx context.Context, cmd FulfillReservationCommand) (*StockMovementResult, error) {
	reservation, err := c.loadReservation(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}

	refType := cmd.ReferenceType
	if refType == "" {
		refType = "shipment"
	}

	return c.execute(ctx, movement{
		key:      reservation.Key,
		kind:     domain.KindFulfillment,
		quantity: cmd.Quantity,
		ref:      domain.Reference{ID: cmd.ReferenceID, Type: refType},
		actor:    cmd.Actor,
		note:     cmd.Note,
		build: func(ctx context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			// reload under the record lock for a consistent view
			reservation, err := c.loadReservation(ctx, cmd.ReservationID)
			if err != nil {
				return nil, nil, err
			}
			if err := reservation.Fulfill(cmd.Quantity); err != nil {
				return nil, nil, err
			}
			return reservation, domain.StockFulfilledEvent{
				StockLevelChanged: movementPayload(entry, record),
				ReservationID:     reservation.ID,
				Outstanding:       reservation.Outstanding,
			}, nil
		},
	})
}

// ReleaseReservation cancels the outstanding part of a reservation and
// hands the units back to the available pool as a negative allocation.
func (c *ReservationCoordinator) ReleaseReservation(ctx context.Context, cmd ReleaseReservationCommand) (*StockMovementResult, error) {
	reservation, err := c.loadReservation(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}

	var released *domain.Reservation

	return c.execute(ctx, movement{
		key:   reservation.Key,
		kind:  domain.KindAllocation,
		ref:   domain.Reference{ID: cmd.ReservationID, Type: "reservation_release"},
		actor: cmd.Actor,
		note:  cmd.Note,
		prepare: func(ctx context.Context, _ *domain.StockRecord) (int, error) {
			reservation, err := c.loadReservation(ctx, cmd.ReservationID)
			if err != nil {
				return 0, err
			}
			quantity, err := reservation.Release()
			if err != nil {
				return 0, err
			}
			released = reservation
			return -quantity, nil
		},
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return released, domain.ReservationReleasedEvent{
				StockLevelChanged: movementPayload(entry, record),
				ReservationID:     released.ID,
				ReleasedQuantity:  -entry.Quantity,
			}, nil
		},
	})
}

// TransferStock moves stock between locations as two audited legs. The
// legs commit independently; a failed inbound leg is compensated with a
// return entry at the source.
func (c *ReservationCoordinator) TransferStock(ctx context.Context, cmd TransferStockCommand) (*TransferResult, error) {
	if cmd.FromLocationID == cmd.ToLocationID {
		return nil, fmt.Errorf("%w: source and destination locations are the same", domain.ErrInvalidRecordKey)
	}

	outbound, err := c.execute(ctx, movement{
		key:      cmd.sourceKey(),
		kind:     domain.KindTransfer,
		quantity: cmd.Quantity,
		ref:      domain.Reference{ID: cmd.ReferenceID, Type: "transfer"},
		actor:    cmd.Actor,
		note:     cmd.Note,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockTransferredOutEvent{
				StockLevelChanged:     movementPayload(entry, record),
				DestinationLocationID: cmd.ToLocationID,
			}, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transfer outbound leg failed: %w", err)
	}

	inbound, err := c.execute(ctx, movement{
		key:             cmd.destinationKey(),
		kind:            domain.KindReceipt,
		quantity:        cmd.Quantity,
		ref:             domain.Reference{ID: cmd.ReferenceID, Type: "transfer"},
		actor:           cmd.Actor,
		note:            cmd.Note,
		createIfMissing: true,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockReceivedEvent{StockLevelChanged: movementPayload(entry, record)}, nil
		},
	})
	if err != nil {
		c.compensateTransfer(ctx, cmd)
		return nil, fmt.Errorf("transfer inbound leg failed: %w", err)
	}

	return &TransferResult{Outbound: outbound, Inbound: inbound}, nil
}

// compensateTransfer puts the outbound quantity back at the source after
// a failed inbound leg. Failures here are logged for manual follow-up;
// the original error is what the caller sees.
func (c *ReservationCoordinator) compensateTransfer(ctx context.Context, cmd TransferStockCommand) {
	_, err := c.execute(ctx, movement{
		key:      cmd.sourceKey(),
		kind:     domain.KindReturn,
		quantity: cmd.Quantity,
		ref:      domain.Reference{ID: cmd.ReferenceID + ":reversal", Type: "transfer_reversal"},
		actor:    cmd.Actor,
		note:     "automatic reversal of failed transfer " + cmd.ReferenceID,
		build: func(_ context.Context, record *domain.StockRecord, entry *domain.LedgerEntry) (*domain.Reservation, domain.DomainEvent, error) {
			return nil, domain.StockReturnedEvent{StockLevelChanged: movementPayload(entry, record)}, nil
		},
	})
	if err != nil {
		c.logger.WithError(err).Error("transfer compensation failed, stock requires manual reconciliation",
			"reference", cmd.ReferenceID,
			"product", cmd.ProductID,
			"from", cmd.FromLocationID,
			"quantity", cmd.Quantity,
		)
	}
}

func (c *ReservationCoordinator) execute(ctx context.Context, m movement) (*StockMovementResult, error) {
	if err := m.key.Validate(); err != nil {
		return nil, err
	}

	release, err := c.acquireLock(ctx, m.key)
	if err != nil {
		return nil, err
	}
	defer release()

	if m.ref.ID != "" {
		existing, err := c.entries.FindByReference(ctx, m.key, m.kind, m.ref.ID)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
		if existing != nil {
			record, err := c.loadRecord(ctx, m.key, false)
			if err != nil {
				return nil, err
			}
			c.logger.Info("replayed ledger reference",
				"key", m.key.String(),
				"kind", string(m.kind),
				"reference", m.ref.ID,
			)
			return &StockMovementResult{Record: record, Entry: existing, Replayed: true}, nil
		}
	}

	record, err := c.loadRecord(ctx, m.key, m.createIfMissing)
	if err != nil {
		return nil, err
	}
	if m.binLocation != "" && record.BinLocation == "" {
		record.BinLocation = m.binLocation
	}

	quantity := m.quantity
	if m.prepare != nil {
		quantity, err = m.prepare(ctx, record)
		if err != nil {
			return nil, err
		}
	}

	// a count that matches on-hand moves nothing but still stamps the record
	if quantity == 0 && m.kind == domain.KindCount {
		return c.commitCountNoop(ctx, record)
	}

	entry, err := domain.NewLedgerEntry(m.key, m.kind, quantity, m.ref, m.actor, m.note)
	if err != nil {
		return nil, err
	}

	wasLow := record.NeedsReorder()
	wasOverstocked := record.IsOverstocked()

	if err := record.Fold(entry); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			c.recordRejection("insufficient_stock")
		}
		return nil, err
	}
	record.Version++

	commit := &domain.Commit{Record: record, Entry: entry}
	result := &StockMovementResult{Record: record, Entry: entry}

	if m.build != nil {
		reservation, event, err := m.build(ctx, record, entry)
		if err != nil {
			return nil, err
		}
		commit.Reservation = reservation
		result.Reservation = reservation
		if event != nil {
			commit.Events = append(commit.Events, event)
		}
	}

	if !wasLow && record.NeedsReorder() {
		commit.Events = append(commit.Events, domain.LowStockEvent{
			Key:               record.Key,
			OnHand:            record.OnHand,
			Available:         record.Available(),
			ReorderPoint:      record.ReorderPoint,
			SuggestedQuantity: record.SuggestedReorderQuantity(),
			Timestamp:         entry.RecordedAt,
		})
	}
	if !wasOverstocked && record.IsOverstocked() {
		commit.Events = append(commit.Events, domain.OverstockEvent{
			Key:           record.Key,
			OnHand:        record.OnHand,
			MaxStockLevel: record.MaxStockLevel,
			Timestamp:     entry.RecordedAt,
		})
	}

	if err := c.uow.Commit(ctx, commit); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			c.recordRejection("concurrency_conflict")
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordLedgerEntry(string(m.kind))
	}
	c.refreshProjection(ctx, m.key)

	return result, nil
}

func (c *ReservationCoordinator) commitCountNoop(ctx context.Context, record *domain.StockRecord) (*StockMovementResult, error) {
	now := time.Now().UTC()
	record.LastCounted = &now
	record.UpdatedAt = now
	record.Version++

	if err := c.uow.Commit(ctx, &domain.Commit{Record: record}); err != nil {
		return nil, err
	}
	return &StockMovementResult{Record: record}, nil
}

func (c *ReservationCoordinator) acquireLock(ctx context.Context, key domain.RecordKey) (func(), error) {
	start := time.Now()
	release, err := c.locks.acquire(ctx, key.String(), c.lockTimeout)
	if c.metrics != nil {
		c.metrics.ObserveLockWait(time.Since(start))
	}
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			c.recordRejection("lock_timeout")
			c.logger.Warn("record lock timed out", "key", key.String(), "timeout", c.lockTimeout.String())
		}
		return nil, err
	}
	return release, nil
}

func (c *ReservationCoordinator) loadRecord(ctx context.Context, key domain.RecordKey, createIfMissing bool) (*domain.StockRecord, error) {
	record, err := c.records.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock record %s: %w", key, err)
	}
	if record == nil {
		if !createIfMissing {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, key)
		}
		record, err = domain.NewStockRecord(key)
		if err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (c *ReservationCoordinator) loadReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: reservation id is required", domain.ErrReservationNotFound)
	}
	reservation, err := c.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation %s: %w", id, err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
	}
	return reservation, nil
}

func (c *ReservationCoordinator) refreshProjection(ctx context.Context, key domain.RecordKey) {
	if c.projections == nil {
		return
	}
	if err := c.projections.Refresh(ctx, key); err != nil {
		c.logger.WithError(err).Warn("projection refresh failed", "key", key.String())
	}
}

func (c *ReservationCoordinator) recordRejection(reason string) {
	if c.metrics != nil {
		c.metrics.RecordStockRejection(reason)
	}
}

func movementPayload(entry *domain.LedgerEntry, record *domain.StockRecord) domain.StockLevelChanged {
	return domain.StockLevelChanged{
		EntryID:   entry.ID,
		Key:       entry.Key,
		Kind:      string(entry.Kind),
		Quantity:  entry.Quantity,
		Reference: entry.Reference,
		OnHand:    record.OnHand,
		Allocated: record.Allocated,
		Available: record.Available(),
		Timestamp: entry.RecordedAt,
	}
}
