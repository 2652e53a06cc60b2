package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"datecraft/internal/domain/shared/events"
)

// EventRecord is the persisted form of a domain event awaiting broker
// publication.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox buffers event records until a worker ships them. Add must never
// fail the state transition that produced the event; callers treat errors
// as log-and-continue.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

// Encode turns a domain event into a JSON-payload record.
func Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{
		ID:         uuid.NewString(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}
