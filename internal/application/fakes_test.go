package application

import (
	"context"
	"sync"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

// fakeStore is an in-memory stand-in for the mongodb repositories and
// unit of work. Reads hand out copies so uncommitted mutations never leak
// back into the store, mirroring how a real database behaves.
type fakeStore struct {
	mu           sync.Mutex
	records      map[string]*domain.StockRecord
	entries      []*domain.LedgerEntry
	reservations map[string]*domain.Reservation
	events       []domain.DomainEvent

	// commitHook, when set, runs inside Commit before the write lands
	commitHook func(commit *domain.Commit) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:      make(map[string]*domain.StockRecord),
		reservations: make(map[string]*domain.Reservation),
	}
}

func (s *fakeStore) FindByKey(_ context.Context, key domain.RecordKey) (*domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key.String()]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeStore) FindBelowReorderPoint(_ context.Context, locationID string) ([]*domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.StockRecord
	for _, record := range s.records {
		if locationID != "" && record.Key.LocationID != locationID {
			continue
		}
		if record.NeedsReorder() {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByProduct(_ context.Context, productID, locationID string) ([]*domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.StockRecord
	for _, record := range s.records {
		if record.Key.ProductID != productID {
			continue
		}
		if locationID != "" && record.Key.LocationID != locationID {
			continue
		}
		copied := *record
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeStore) FindByReference(_ context.Context, key domain.RecordKey, kind domain.TransactionKind, referenceID string) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.Key == key && entry.Kind == kind && entry.Reference.ID == referenceID {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListByKey(_ context.Context, key domain.RecordKey, limit, offset int64) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.Key == key {
			copied := *entry
			out = append(out, &copied)
		}
	}
	if offset > 0 {
		if offset >= int64(len(out)) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *reservation
	return &copied, nil
}

func (s *fakeStore) ListActiveByKey(_ context.Context, key domain.RecordKey) ([]*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Reservation
	for _, reservation := range s.reservations {
		if reservation.Key == key && reservation.IsActive() {
			copied := *reservation
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) Commit(_ context.Context, commit *domain.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitHook != nil {
		if err := s.commitHook(commit); err != nil {
			return err
		}
	}

	// optimistic concurrency, same contract as the mongodb unit of work
	if existing, ok := s.records[commit.Record.Key.String()]; ok {
		if existing.Version != commit.Record.Version-1 {
			return domain.ErrConcurrencyConflict
		}
	} else if commit.Record.Version != 1 {
		return domain.ErrConcurrencyConflict
	}

	record := *commit.Record
	s.records[record.Key.String()] = &record

	if commit.Entry != nil {
		entry := *commit.Entry
		s.entries = append(s.entries, &entry)
	}
	if commit.Reservation != nil {
		reservation := *commit.Reservation
		s.reservations[reservation.ID] = &reservation
	}
	s.events = append(s.events, commit.Events...)
	return nil
}

func (s *fakeStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, len(s.events))
	for i, event := range s.events {
		types[i] = event.EventType()
	}
	return types
}

func (s *fakeStore) hasEventType(eventType string) bool {
	for _, t := range s.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

func (s *fakeStore) entriesForKey(key domain.RecordKey) []*domain.LedgerEntry {
	out, _ := s.ListByKey(context.Background(), key, 0, 0)
	return out
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Service: "stock-ledger-test", Level: "error"})
}

func newTestCoordinator(store *fakeStore, opts ...CoordinatorOption) *ReservationCoordinator {
	return NewReservationCoordinator(store, store, store, store, testLogger(), opts...)
}
