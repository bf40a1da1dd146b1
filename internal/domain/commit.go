package domain

// Commit is the atomic unit of a ledger mutation: the updated record, the
// entry that moved it, the reservation it touched (if any) and the events
// to stage on the outbox. Persistence commits all of it in one
// transaction or none of it.
type Commit struct {
	Record      *StockRecord
	Entry       *LedgerEntry
	Reservation *Reservation
	Events      []DomainEvent
}
