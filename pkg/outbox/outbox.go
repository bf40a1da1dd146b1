package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/commerce-platform/stock-ledger/pkg/cloudevents"
)

// Event is a domain event staged for publication. It is written in the
// same transaction as the state change it describes and published to the
// broker asynchronously.
type Event struct {
	ID            string     `bson:"_id" json:"id"`
	AggregateID   string     `bson:"aggregateId" json:"aggregateId"`
	AggregateType string     `bson:"aggregateType" json:"aggregateType"`
	EventType     string     `bson:"eventType" json:"eventType"`
	Topic         string     `bson:"topic" json:"topic"`
	Payload       []byte     `bson:"payload" json:"payload"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int        `bson:"retryCount" json:"retryCount"`
	LastError     string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewEvent stages a CloudEvents envelope for the given topic
func NewEvent(topic, aggregateType string, envelope *cloudevents.Event) (*Event, error) {
	payload, err := envelope.Marshal()
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   envelope.Subject,
		AggregateType: aggregateType,
		EventType:     envelope.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Envelope decodes the staged payload back into a CloudEvents envelope
func (e *Event) Envelope() (*cloudevents.Event, error) {
	return cloudevents.Unmarshal(e.Payload)
}

// Repository persists and drains outbox events
type Repository interface {
	Save(ctx context.Context, event *Event) error
	SaveAll(ctx context.Context, events []*Event) error
	FindUnpublished(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, eventID string) error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
	CountUnpublished(ctx context.Context) (int64, error)
}
