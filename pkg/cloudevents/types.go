package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the CloudEvents specification version produced by this service
const SpecVersion = "1.0"

// Event is a CloudEvents 1.0 envelope carrying a domain event payload
type Event struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`

	// Extension attributes
	CorrelationID string `json:"correlationid,omitempty"`
}

// New builds an event envelope around a JSON-serializable payload
func New(source, eventType, subject string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &Event{
		SpecVersion:     SpecVersion,
		ID:              uuid.New().String(),
		Source:          source,
		Type:            eventType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}, nil
}

// Marshal serializes the full envelope
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses an envelope from raw bytes
func Unmarshal(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cloud event: %w", err)
	}
	return &event, nil
}

// DecodeData unmarshals the payload into the given value
func (e *Event) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
