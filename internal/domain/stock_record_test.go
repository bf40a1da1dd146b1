package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() RecordKey {
	return RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}
}

func mustEntry(t *testing.T, key RecordKey, kind TransactionKind, qty int) *LedgerEntry {
	t.Helper()
	entry, err := NewLedgerEntry(key, kind, qty, Reference{ID: "REF-" + string(kind), Type: "test"}, "tester", "test note")
	require.NoError(t, err)
	return entry
}

func TestStockRecord_Fold(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(r *StockRecord)
		kind          TransactionKind
		quantity      int
		expectError   error
		wantOnHand    int
		wantAllocated int
	}{
		{
			name:       "receipt adds to on-hand",
			kind:       KindReceipt,
			quantity:   20,
			wantOnHand: 20,
		},
		{
			name:       "return adds to on-hand",
			setup:      func(r *StockRecord) { r.OnHand = 5 },
			kind:       KindReturn,
			quantity:   2,
			wantOnHand: 7,
		},
		{
			name:       "positive adjustment",
			setup:      func(r *StockRecord) { r.OnHand = 10 },
			kind:       KindAdjustment,
			quantity:   3,
			wantOnHand: 13,
		},
		{
			name:       "negative adjustment",
			setup:      func(r *StockRecord) { r.OnHand = 10 },
			kind:       KindAdjustment,
			quantity:   -4,
			wantOnHand: 6,
		},
		{
			name:        "adjustment below zero is rejected",
			setup:       func(r *StockRecord) { r.OnHand = 3 },
			kind:        KindAdjustment,
			quantity:    -5,
			expectError: ErrInsufficientStock,
			wantOnHand:  3,
		},
		{
			name:          "allocation reserves available stock",
			setup:         func(r *StockRecord) { r.OnHand = 10 },
			kind:          KindAllocation,
			quantity:      4,
			wantOnHand:    10,
			wantAllocated: 4,
		},
		{
			name:          "allocation beyond available is rejected",
			setup:         func(r *StockRecord) { r.OnHand = 10; r.Allocated = 8 },
			kind:          KindAllocation,
			quantity:      3,
			expectError:   ErrInsufficientStock,
			wantOnHand:    10,
			wantAllocated: 8,
		},
		{
			name: "allocation beyond available succeeds with backordering",
			setup: func(r *StockRecord) {
				r.OnHand = 2
				r.BackorderEnabled = true
			},
			kind:          KindAllocation,
			quantity:      5,
			wantOnHand:    2,
			wantAllocated: 5,
		},
		{
			name:          "negative allocation releases reserved stock",
			setup:         func(r *StockRecord) { r.OnHand = 10; r.Allocated = 6 },
			kind:          KindAllocation,
			quantity:      -6,
			wantOnHand:    10,
			wantAllocated: 0,
		},
		{
			name:          "release beyond allocated is rejected",
			setup:         func(r *StockRecord) { r.OnHand = 10; r.Allocated = 2 },
			kind:          KindAllocation,
			quantity:      -3,
			expectError:   ErrInsufficientStock,
			wantOnHand:    10,
			wantAllocated: 2,
		},
		{
			name:          "fulfillment consumes on-hand and allocated",
			setup:         func(r *StockRecord) { r.OnHand = 20; r.Allocated = 12 },
			kind:          KindFulfillment,
			quantity:      12,
			wantOnHand:    8,
			wantAllocated: 0,
		},
		{
			name:          "fulfillment beyond allocated is rejected",
			setup:         func(r *StockRecord) { r.OnHand = 20; r.Allocated = 5 },
			kind:          KindFulfillment,
			quantity:      6,
			expectError:   ErrInsufficientStock,
			wantOnHand:    20,
			wantAllocated: 5,
		},
		{
			name: "backordered fulfillment beyond on-hand is rejected",
			setup: func(r *StockRecord) {
				r.OnHand = 3
				r.Allocated = 5
				r.BackorderEnabled = true
			},
			kind:          KindFulfillment,
			quantity:      5,
			expectError:   ErrInsufficientStock,
			wantOnHand:    3,
			wantAllocated: 5,
		},
		{
			name:       "transfer out removes available stock",
			setup:      func(r *StockRecord) { r.OnHand = 10 },
			kind:       KindTransfer,
			quantity:   4,
			wantOnHand: 6,
		},
		{
			name:          "transfer cannot take allocated stock",
			setup:         func(r *StockRecord) { r.OnHand = 10; r.Allocated = 8 },
			kind:          KindTransfer,
			quantity:      3,
			expectError:   ErrInsufficientStock,
			wantOnHand:    10,
			wantAllocated: 8,
		},
		{
			name:       "count records a signed delta",
			setup:      func(r *StockRecord) { r.OnHand = 10 },
			kind:       KindCount,
			quantity:   -2,
			wantOnHand: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := NewStockRecord(testKey())
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(record)
			}

			entry := mustEntry(t, testKey(), tt.kind, tt.quantity)
			err = record.Fold(entry)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, record.OnHand, entry.OnHandAfter)
				assert.Equal(t, record.Allocated, entry.AllocatedAfter)
			}
			assert.Equal(t, tt.wantOnHand, record.OnHand)
			assert.Equal(t, tt.wantAllocated, record.Allocated)
		})
	}
}

func TestStockRecord_FoldTrackingDisabled(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.TrackingEnabled = false

	err = record.Fold(mustEntry(t, testKey(), KindReceipt, 10))
	require.ErrorIs(t, err, ErrTrackingDisabled)
	assert.Zero(t, record.OnHand)
}

func TestStockRecord_FoldKeyMismatch(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)

	other := RecordKey{ProductID: "PROD-002", LocationID: "WH-A"}
	err = record.Fold(mustEntry(t, other, KindReceipt, 10))
	require.ErrorIs(t, err, ErrInvalidRecordKey)
}

func TestStockRecord_FoldStampsLastCounted(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.OnHand = 10
	require.Nil(t, record.LastCounted)

	entry := mustEntry(t, testKey(), KindCount, -1)
	require.NoError(t, record.Fold(entry))

	require.NotNil(t, record.LastCounted)
	assert.Equal(t, entry.RecordedAt, *record.LastCounted)
}

func TestStockRecord_Available(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)

	record.OnHand = 10
	record.Allocated = 4
	assert.Equal(t, 6, record.Available())

	// backordering can push allocated above on-hand; available floors at zero
	record.Allocated = 14
	assert.Equal(t, 0, record.Available())
}

func TestStockRecord_ReplayMatchesLiveCounters(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)

	moves := []struct {
		kind TransactionKind
		qty  int
	}{
		{KindReceipt, 20},
		{KindAllocation, 12},
		{KindFulfillment, 10},
		{KindAllocation, -2},
		{KindReturn, 3},
		{KindAdjustment, -1},
		{KindCount, 2},
		{KindTransfer, 4},
	}

	var entries []*LedgerEntry
	for _, m := range moves {
		entry := mustEntry(t, testKey(), m.kind, m.qty)
		require.NoError(t, record.Fold(entry))
		entries = append(entries, entry)
	}

	replayed, err := record.Replay(entries)
	require.NoError(t, err)
	assert.Equal(t, record.OnHand, replayed.OnHand)
	assert.Equal(t, record.Allocated, replayed.Allocated)
	assert.Equal(t, record.Available(), replayed.Available())
}

func TestStockRecord_NeedsReorder(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.ReorderPoint = 5

	record.OnHand = 6
	assert.False(t, record.NeedsReorder())

	record.OnHand = 5
	assert.True(t, record.NeedsReorder())

	record.OnHand = 0
	assert.True(t, record.NeedsReorder())

	record.TrackingEnabled = false
	assert.False(t, record.NeedsReorder())
}

func TestStockRecord_SuggestedReorderQuantity(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.ReorderQuantity = 10
	record.MaxStockLevel = 100

	record.OnHand = 5
	assert.Equal(t, 10, record.SuggestedReorderQuantity())

	// capped by max stock level headroom
	record.OnHand = 95
	assert.Equal(t, 5, record.SuggestedReorderQuantity())

	record.OnHand = 100
	assert.Equal(t, 0, record.SuggestedReorderQuantity())

	// no max stock level configured
	record.MaxStockLevel = 0
	assert.Equal(t, 10, record.SuggestedReorderQuantity())
}

func TestStockRecord_IsOverstocked(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.MaxStockLevel = 100

	record.OnHand = 100
	assert.False(t, record.IsOverstocked())

	record.OnHand = 101
	assert.True(t, record.IsOverstocked())
}

func TestStockRecord_ReplayKeepsConfiguration(t *testing.T) {
	record, err := NewStockRecord(testKey())
	require.NoError(t, err)
	record.BackorderEnabled = true

	receive := mustEntry(t, testKey(), KindReceipt, 2)
	require.NoError(t, record.Fold(receive))

	// over-allocation allowed only because backordering is enabled
	allocate := mustEntry(t, testKey(), KindAllocation, 5)
	require.NoError(t, record.Fold(allocate))

	replayed, err := record.Replay([]*LedgerEntry{receive, allocate})
	require.NoError(t, err)
	assert.Equal(t, record.Allocated, replayed.Allocated)
	assert.WithinDuration(t, time.Now(), replayed.UpdatedAt, time.Minute)
}
