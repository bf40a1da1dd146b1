package domain

import "errors"

// Domain errors. The application layer wraps these with operation context;
// the HTTP layer maps them to status codes.
var (
	ErrInvalidRecordKey       = errors.New("invalid stock record key")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrUnknownTransactionKind = errors.New("unknown transaction kind")
	ErrMissingReference       = errors.New("reference is required for this transaction kind")
	ErrNoteRequired           = errors.New("a note is required for manual adjustments")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrRecordNotFound         = errors.New("stock record not found")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrReservationClosed      = errors.New("reservation is not active")
	ErrConcurrencyConflict    = errors.New("concurrent modification of stock record")
	ErrTrackingDisabled       = errors.New("inventory tracking is disabled for this record")
)
