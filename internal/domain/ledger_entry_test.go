package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry_Validation(t *testing.T) {
	key := RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}
	ref := Reference{ID: "PO-1", Type: "purchase_order"}

	tests := []struct {
		name        string
		key         RecordKey
		kind        TransactionKind
		quantity    int
		ref         Reference
		note        string
		expectError error
	}{
		{
			name:     "valid receipt",
			key:      key,
			kind:     KindReceipt,
			quantity: 10,
			ref:      ref,
		},
		{
			name:        "missing product id",
			key:         RecordKey{LocationID: "WH-A"},
			kind:        KindReceipt,
			quantity:    10,
			ref:         ref,
			expectError: ErrInvalidRecordKey,
		},
		{
			name:        "missing location id",
			key:         RecordKey{ProductID: "PROD-001"},
			kind:        KindReceipt,
			quantity:    10,
			ref:         ref,
			expectError: ErrInvalidRecordKey,
		},
		{
			name:        "unknown kind",
			key:         key,
			kind:        TransactionKind("disposal"),
			quantity:    10,
			ref:         ref,
			expectError: ErrUnknownTransactionKind,
		},
		{
			name:        "zero quantity",
			key:         key,
			kind:        KindReceipt,
			quantity:    0,
			ref:         ref,
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "negative receipt quantity",
			key:         key,
			kind:        KindReceipt,
			quantity:    -5,
			ref:         ref,
			expectError: ErrInvalidQuantity,
		},
		{
			name:     "negative adjustment quantity is allowed",
			key:      key,
			kind:     KindAdjustment,
			quantity: -5,
			note:     "damaged in storage",
		},
		{
			name:     "negative count delta is allowed",
			key:      key,
			kind:     KindCount,
			quantity: -2,
		},
		{
			name:     "negative allocation records a release",
			key:      key,
			kind:     KindAllocation,
			quantity: -3,
			ref:      ref,
		},
		{
			name:        "receipt without reference",
			key:         key,
			kind:        KindReceipt,
			quantity:    10,
			expectError: ErrMissingReference,
		},
		{
			name:        "allocation without reference",
			key:         key,
			kind:        KindAllocation,
			quantity:    5,
			expectError: ErrMissingReference,
		},
		{
			name:     "return without reference is allowed",
			key:      key,
			kind:     KindReturn,
			quantity: 2,
		},
		{
			name:        "adjustment without note",
			key:         key,
			kind:        KindAdjustment,
			quantity:    -1,
			expectError: ErrNoteRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewLedgerEntry(tt.key, tt.kind, tt.quantity, tt.ref, "tester", tt.note)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, entry)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.NotEmpty(t, entry.ID)
			assert.Equal(t, tt.kind, entry.Kind)
			assert.Equal(t, tt.quantity, entry.Quantity)
			assert.False(t, entry.RecordedAt.IsZero())
		})
	}
}

func TestRecordKey_String(t *testing.T) {
	key := RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}
	assert.Equal(t, "PROD-001@WH-A", key.String())

	key.VariantID = "VAR-RED"
	assert.Equal(t, "PROD-001/VAR-RED@WH-A", key.String())
}
