package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeReservation(t *testing.T, quantity int) *Reservation {
	t.Helper()
	key := RecordKey{ProductID: "PROD-001", LocationID: "WH-A"}
	entry, err := NewLedgerEntry(key, KindAllocation, quantity,
		Reference{ID: "SO-100", Type: "sales_order"}, "tester", "")
	require.NoError(t, err)
	return NewReservation(entry)
}

func TestReservation_Fulfill(t *testing.T) {
	t.Run("full fulfillment closes the reservation", func(t *testing.T) {
		res := activeReservation(t, 12)

		require.NoError(t, res.Fulfill(12))
		assert.Equal(t, 0, res.Outstanding)
		assert.Equal(t, ReservationFulfilled, res.Status)
		assert.NotNil(t, res.FulfilledAt)
	})

	t.Run("partial fulfillment stays active", func(t *testing.T) {
		res := activeReservation(t, 12)

		require.NoError(t, res.Fulfill(5))
		assert.Equal(t, 7, res.Outstanding)
		assert.Equal(t, ReservationActive, res.Status)
		assert.Nil(t, res.FulfilledAt)
	})

	t.Run("fulfillment beyond outstanding is a stock shortfall", func(t *testing.T) {
		res := activeReservation(t, 12)
		require.NoError(t, res.Fulfill(10))

		err := res.Fulfill(3)
		require.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 2, res.Outstanding)
	})

	t.Run("fulfilling a closed reservation fails", func(t *testing.T) {
		res := activeReservation(t, 5)
		require.NoError(t, res.Fulfill(5))

		err := res.Fulfill(1)
		require.ErrorIs(t, err, ErrReservationClosed)
	})

	t.Run("zero quantity fails", func(t *testing.T) {
		res := activeReservation(t, 5)
		require.ErrorIs(t, res.Fulfill(0), ErrInvalidQuantity)
	})
}

func TestReservation_Release(t *testing.T) {
	t.Run("release returns the outstanding quantity", func(t *testing.T) {
		res := activeReservation(t, 12)
		require.NoError(t, res.Fulfill(4))

		released, err := res.Release()
		require.NoError(t, err)
		assert.Equal(t, 8, released)
		assert.Equal(t, 0, res.Outstanding)
		assert.Equal(t, ReservationReleased, res.Status)
		assert.NotNil(t, res.ReleasedAt)
	})

	t.Run("releasing a closed reservation fails", func(t *testing.T) {
		res := activeReservation(t, 5)
		_, err := res.Release()
		require.NoError(t, err)

		_, err = res.Release()
		require.ErrorIs(t, err, ErrReservationClosed)
	})
}
