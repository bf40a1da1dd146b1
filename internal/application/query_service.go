package application

import (
	"context"
	"fmt"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

type recordLister interface {
	ListByProduct(ctx context.Context, productID, locationID string) ([]*domain.StockRecord, error)
}

// reservationReader adds the active-reservation listing the read side
// needs on top of the coordinator's lookup interface.
type reservationReader interface {
	reservationRepository
	ListActiveByKey(ctx context.Context, key domain.RecordKey) ([]*domain.Reservation, error)
}

// StockQueryService serves the read side: records, ledger history and
// reservations. It never mutates state.
type StockQueryService struct {
	records      stockRecordRepository
	recordLists  recordLister
	entries      ledgerEntryRepository
	reservations reservationReader
	logger       *logging.Logger
}

// NewStockQueryService creates the query service
func NewStockQueryService(
	records stockRecordRepository,
	recordLists recordLister,
	entries ledgerEntryRepository,
	reservations reservationReader,
	logger *logging.Logger,
) *StockQueryService {
	return &StockQueryService{
		records:      records,
		recordLists:  recordLists,
		entries:      entries,
		reservations: reservations,
		logger:       logger.WithComponent("stock-queries"),
	}
}

// GetStockRecord returns the record for a key
func (s *StockQueryService) GetStockRecord(ctx context.Context, key domain.RecordKey) (*domain.StockRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	record, err := s.records.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock record %s: %w", key, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, key)
	}
	return record, nil
}

// ListStockRecords returns all records for a product, optionally scoped
// to one location.
func (s *StockQueryService) ListStockRecords(ctx context.Context, productID, locationID string) ([]*domain.StockRecord, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidRecordKey)
	}
	records, err := s.recordLists.ListByProduct(ctx, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock records for %s: %w", productID, err)
	}
	return records, nil
}

// ListLedgerEntries returns a page of the ledger for a key, oldest first
func (s *StockQueryService) ListLedgerEntries(ctx context.Context, key domain.RecordKey, limit, offset int64) ([]*domain.LedgerEntry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.entries.ListByKey(ctx, key, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries for %s: %w", key, err)
	}
	return entries, nil
}

// GetReservation returns a reservation by id
func (s *StockQueryService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: reservation id is required", domain.ErrReservationNotFound)
	}
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation %s: %w", id, err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
	}
	return reservation, nil
}

// ListActiveReservations returns the open reservations holding stock on a
// record.
func (s *StockQueryService) ListActiveReservations(ctx context.Context, key domain.RecordKey) ([]*domain.Reservation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	reservations, err := s.reservations.ListActiveByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for %s: %w", key, err)
	}
	return reservations, nil
}

// VerifyLedger refolds the full ledger for a key and compares it with the
// live counters. Used by the reconciliation endpoint.
func (s *StockQueryService) VerifyLedger(ctx context.Context, key domain.RecordKey) (bool, error) {
	record, err := s.GetStockRecord(ctx, key)
	if err != nil {
		return false, err
	}

	// full history, oldest first
	entries, err := s.entries.ListByKey(ctx, key, 0, 0)
	if err != nil {
		return false, fmt.Errorf("failed to load ledger for %s: %w", key, err)
	}

	replayed, err := record.Replay(entries)
	if err != nil {
		return false, err
	}

	consistent := replayed.OnHand == record.OnHand && replayed.Allocated == record.Allocated
	if !consistent {
		s.logger.Error("ledger does not fold to live counters",
			"key", key.String(),
			"onHand", record.OnHand,
			"replayedOnHand", replayed.OnHand,
			"allocated", record.Allocated,
			"replayedAllocated", replayed.Allocated,
		)
	}
	return consistent, nil
}
