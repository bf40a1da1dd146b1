package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/cloudevents"
	"github.com/commerce-platform/stock-ledger/pkg/kafka"
	mongoclient "github.com/commerce-platform/stock-ledger/pkg/mongodb"
	"github.com/commerce-platform/stock-ledger/pkg/outbox"
)

// EventSource is the CloudEvents source for events produced by this service
const EventSource = "/commerce/stock-ledger"

// UnitOfWork commits a ledger mutation in one MongoDB transaction: the
// stock record, the ledger entry, the reservation and the outbox events
// land together or not at all.
type UnitOfWork struct {
	client       *mongo.Client
	records      *StockRecordRepository
	entries      *LedgerEntryRepository
	reservations *ReservationRepository
	outbox       outbox.Repository
}

// NewUnitOfWork creates the unit of work over the shared repositories
func NewUnitOfWork(
	client *mongo.Client,
	records *StockRecordRepository,
	entries *LedgerEntryRepository,
	reservations *ReservationRepository,
	outboxRepo outbox.Repository,
) *UnitOfWork {
	return &UnitOfWork{
		client:       client,
		records:      records,
		entries:      entries,
		reservations: reservations,
		outbox:       outboxRepo,
	}
}

// Commit applies the mutation transactionally
func (u *UnitOfWork) Commit(ctx context.Context, commit *domain.Commit) error {
	outboxEvents, err := stageEvents(commit.Events)
	if err != nil {
		return err
	}

	_, err = mongoclient.WithTransaction(ctx, u.client, func(sc mongo.SessionContext) (interface{}, error) {
		if err := u.records.save(sc, commit.Record); err != nil {
			return nil, err
		}
		if commit.Entry != nil {
			if err := u.entries.insert(sc, commit.Entry); err != nil {
				return nil, err
			}
		}
		if commit.Reservation != nil {
			if err := u.reservations.save(sc, commit.Reservation); err != nil {
				return nil, err
			}
		}
		if len(outboxEvents) > 0 {
			if err := u.outbox.SaveAll(sc, outboxEvents); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// stageEvents wraps domain events in CloudEvents envelopes and routes
// them to their topics.
func stageEvents(events []domain.DomainEvent) ([]*outbox.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	staged := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		envelope, err := cloudevents.New(EventSource, event.EventType(), event.AggregateID(), event)
		if err != nil {
			return nil, fmt.Errorf("failed to build envelope for %s: %w", event.EventType(), err)
		}
		envelope.Time = event.OccurredAt()

		staged = append(staged, mustStage(topicFor(event.EventType()), envelope))
	}
	return staged, nil
}

func mustStage(topic string, envelope *cloudevents.Event) *outbox.Event {
	// NewEvent only fails on marshal errors, which New already ruled out
	staged, err := outbox.NewEvent(topic, "stock_record", envelope)
	if err != nil {
		panic(err)
	}
	return staged
}

func topicFor(eventType string) string {
	switch eventType {
	case domain.EventTypeStockAllocated,
		domain.EventTypeStockFulfilled,
		domain.EventTypeReservationReleased:
		return kafka.Topics.ReservationEvents
	case domain.EventTypeLowStock,
		domain.EventTypeOverstock:
		return kafka.Topics.ReorderAlerts
	default:
		return kafka.Topics.StockEvents
	}
}
