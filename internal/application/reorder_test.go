package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/stock-ledger/internal/domain"
)

func seedRecord(t *testing.T, store *fakeStore, productID, locationID string, onHand, reorderPoint int) *domain.StockRecord {
	t.Helper()
	record, err := domain.NewStockRecord(domain.RecordKey{ProductID: productID, LocationID: locationID})
	require.NoError(t, err)
	record.OnHand = onHand
	record.ReorderPoint = reorderPoint
	record.Version = 1
	store.records[record.Key.String()] = record
	return record
}

func TestReorderAdvisor_FlipsAtReorderPoint(t *testing.T) {
	store := newFakeStore()
	advisor := NewReorderAdvisor(store, nil, testLogger())
	ctx := context.Background()

	record := seedRecord(t, store, "PROD-001", "WH-A", 6, 5)

	advice, err := advisor.Advise(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, advice)

	// drop to exactly the reorder point
	record.OnHand = 5

	advice, err = advisor.Advise(ctx, "")
	require.NoError(t, err)
	require.Len(t, advice, 1)
	assert.Equal(t, "PROD-001", advice[0].Record.Key.ProductID)
	assert.Equal(t, record.ReorderQuantity, advice[0].SuggestedQuantity)
}

func TestReorderAdvisor_LocationFilter(t *testing.T) {
	store := newFakeStore()
	advisor := NewReorderAdvisor(store, nil, testLogger())
	ctx := context.Background()

	seedRecord(t, store, "PROD-001", "WH-A", 2, 5)
	seedRecord(t, store, "PROD-002", "WH-B", 1, 5)

	advice, err := advisor.Advise(ctx, "WH-B")
	require.NoError(t, err)
	require.Len(t, advice, 1)
	assert.Equal(t, "PROD-002", advice[0].Record.Key.ProductID)
}

func TestReorderAdvisor_SuggestionCappedByMaxStock(t *testing.T) {
	store := newFakeStore()
	advisor := NewReorderAdvisor(store, nil, testLogger())
	ctx := context.Background()

	record := seedRecord(t, store, "PROD-001", "WH-A", 3, 5)
	record.ReorderQuantity = 50
	record.MaxStockLevel = 40

	advice, err := advisor.Advise(ctx, "")
	require.NoError(t, err)
	require.Len(t, advice, 1)
	assert.Equal(t, 37, advice[0].SuggestedQuantity)
}

func TestQueryService_ListActiveReservations(t *testing.T) {
	store := newFakeStore()
	coordinator := newTestCoordinator(store)
	queries := NewStockQueryService(store, store, store, store, testLogger())
	ctx := context.Background()

	_, err := coordinator.ReceiveStock(ctx, receiveCmd(20, "PO-1"))
	require.NoError(t, err)
	first, err := coordinator.AllocateStock(ctx, allocateCmd(5, "SO-1"))
	require.NoError(t, err)
	second, err := coordinator.AllocateStock(ctx, allocateCmd(3, "SO-2"))
	require.NoError(t, err)

	key := domain.RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}

	active, err := queries.ListActiveReservations(ctx, key)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = coordinator.ReleaseReservation(ctx, ReleaseReservationCommand{ReservationID: first.Reservation.ID})
	require.NoError(t, err)

	active, err = queries.ListActiveReservations(ctx, key)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.Reservation.ID, active[0].ID)
}

func TestQueryService_VerifyLedger(t *testing.T) {
	store := newFakeStore()
	coordinator := newTestCoordinator(store)
	queries := NewStockQueryService(store, store, store, store, testLogger())
	ctx := context.Background()

	_, err := coordinator.ReceiveStock(ctx, receiveCmd(20, "PO-1"))
	require.NoError(t, err)
	allocated, err := coordinator.AllocateStock(ctx, allocateCmd(12, "SO-1"))
	require.NoError(t, err)
	_, err = coordinator.FulfillReservation(ctx, FulfillReservationCommand{
		ReservationID: allocated.Reservation.ID,
		Quantity:      12,
		ReferenceID:   "SHIP-1",
	})
	require.NoError(t, err)

	key := domain.RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}
	consistent, err := queries.VerifyLedger(ctx, key)
	require.NoError(t, err)
	assert.True(t, consistent)

	// corrupt the live counters; the fold must now disagree
	store.mu.Lock()
	store.records[key.String()].OnHand = 99
	store.mu.Unlock()

	consistent, err = queries.VerifyLedger(ctx, key)
	require.NoError(t, err)
	assert.False(t, consistent)
}
