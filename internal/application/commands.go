package application

import "github.com/commerce-platform/stock-ledger/internal/domain"

// ReceiveStockCommand books inbound stock against a purchase order or
// similar inbound reference.
type ReceiveStockCommand struct {
	ProductID     string
	VariantID     string
	LocationID    string
	Quantity      int
	ReferenceID   string
	ReferenceType string
	Actor         string
	Note          string
	BinLocation   string
}

func (c ReceiveStockCommand) key() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.LocationID}
}

func (c ReceiveStockCommand) reference() domain.Reference {
	return domain.Reference{ID: c.ReferenceID, Type: c.ReferenceType}
}

// AdjustStockCommand records a signed manual correction. A note is
// mandatory; it is the audit trail for the correction.
type AdjustStockCommand struct {
	ProductID     string
	VariantID     string
	LocationID    string
	Quantity      int
	ReferenceID   string
	ReferenceType string
	Actor         string
	Note          string
}

func (c AdjustStockCommand) key() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.LocationID}
}

func (c AdjustStockCommand) reference() domain.Reference {
	return domain.Reference{ID: c.ReferenceID, Type: c.ReferenceType}
}

// RecordCountCommand records a physical count. The coordinator derives the
// signed delta from the counted quantity.
type RecordCountCommand struct {
	ProductID       string
	VariantID       string
	LocationID      string
	CountedQuantity int
	ReferenceID     string
	ReferenceType   string
	Actor           string
	Note            string
}

func (c RecordCountCommand) key() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.LocationID}
}

func (c RecordCountCommand) reference() domain.Reference {
	return domain.Reference{ID: c.ReferenceID, Type: c.ReferenceType}
}

// ReturnStockCommand books a customer return back into on-hand stock
type ReturnStockCommand struct {
	ProductID     string
	VariantID     string
	LocationID    string
	Quantity      int
	ReferenceID   string
	ReferenceType string
	Actor         string
	Note          string
}

func (c ReturnStockCommand) key() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.LocationID}
}

func (c ReturnStockCommand) reference() domain.Reference {
	return domain.Reference{ID: c.ReferenceID, Type: c.ReferenceType}
}

// AllocateStockCommand reserves stock for an order
type AllocateStockCommand struct {
	ProductID     string
	VariantID     string
	LocationID    string
	Quantity      int
	ReferenceID   string
	ReferenceType string
	Actor         string
	Note          string
}

func (c AllocateStockCommand) key() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.LocationID}
}

func (c AllocateStockCommand) reference() domain.Reference {
	return domain.Reference{ID: c.ReferenceID, Type: c.ReferenceType}
}

// FulfillReservationCommand ships units against a reservation. The
// reference identifies the shipment so partial fulfillments stay
// individually idempotent.
type FulfillReservationCommand struct {
	ReservationID string
	Quantity      int
	ReferenceID   string
	ReferenceType string
	Actor         string
	Note          string
}

// ReleaseReservationCommand cancels the outstanding part of a reservation
type ReleaseReservationCommand struct {
	ReservationID string
	Actor         string
	Note          string
}

// TransferStockCommand moves stock between two locations as two audited
// legs: an outbound transfer entry and an inbound receipt entry.
type TransferStockCommand struct {
	ProductID      string
	VariantID      string
	FromLocationID string
	ToLocationID   string
	Quantity       int
	ReferenceID    string
	Actor          string
	Note           string
}

func (c TransferStockCommand) sourceKey() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.FromLocationID}
}

func (c TransferStockCommand) destinationKey() domain.RecordKey {
	return domain.RecordKey{ProductID: c.ProductID, VariantID: c.VariantID, LocationID: c.ToLocationID}
}
