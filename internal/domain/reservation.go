package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation tracks units committed by an allocation until they are
// fulfilled or released. Outstanding is what remains to ship.
type Reservation struct {
	ID          string            `bson:"_id" json:"id"`
	Key         RecordKey         `bson:"key" json:"key"`
	EntryID     string            `bson:"entryId" json:"entryId"`
	Reference   Reference         `bson:"reference" json:"reference"`
	Quantity    int               `bson:"quantity" json:"quantity"`
	Outstanding int               `bson:"outstanding" json:"outstanding"`
	Status      ReservationStatus `bson:"status" json:"status"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt" json:"updatedAt"`
	FulfilledAt *time.Time        `bson:"fulfilledAt,omitempty" json:"fulfilledAt,omitempty"`
	ReleasedAt  *time.Time        `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}

// NewReservation creates an active reservation from its allocation entry
func NewReservation(entry *LedgerEntry) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:          uuid.New().String(),
		Key:         entry.Key,
		EntryID:     entry.ID,
		Reference:   entry.Reference,
		Quantity:    entry.Quantity,
		Outstanding: entry.Quantity,
		Status:      ReservationActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive reports whether the reservation can still be fulfilled or released
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// Fulfill ships quantity units against the reservation. Partial
// fulfillment keeps the reservation active until outstanding hits zero.
func (r *Reservation) Fulfill(quantity int) error {
	if !r.IsActive() {
		return fmt.Errorf("%w: status is %s", ErrReservationClosed, r.Status)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: fulfillment quantity must be positive", ErrInvalidQuantity)
	}
	if quantity > r.Outstanding {
		return fmt.Errorf("%w: fulfillment of %d exceeds outstanding %d",
			ErrInsufficientStock, quantity, r.Outstanding)
	}

	r.Outstanding -= quantity
	r.UpdatedAt = time.Now().UTC()
	if r.Outstanding == 0 {
		r.Status = ReservationFulfilled
		fulfilled := r.UpdatedAt
		r.FulfilledAt = &fulfilled
	}
	return nil
}

// Release cancels the reservation and returns the quantity to hand back
// to the available pool.
func (r *Reservation) Release() (int, error) {
	if !r.IsActive() {
		return 0, fmt.Errorf("%w: status is %s", ErrReservationClosed, r.Status)
	}

	released := r.Outstanding
	r.Outstanding = 0
	r.Status = ReservationReleased
	r.UpdatedAt = time.Now().UTC()
	releasedAt := r.UpdatedAt
	r.ReleasedAt = &releasedAt
	return released, nil
}
