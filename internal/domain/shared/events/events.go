package events

import "time"

// DomainEvent is implemented by every state-transition event emitted by an
// aggregate. Events are collected on the aggregate and handed to the
// notification dispatcher once the transition has been persisted.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder accumulates pending events on an aggregate between load and save.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

// PendingEvents returns a copy of the events recorded since the last clear.
func (r *Recorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *Recorder) ClearEvents() {
	r.pending = nil
}
