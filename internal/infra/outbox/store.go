package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "datecraft/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// EventDocument is a persisted outbox entry plus its delivery bookkeeping.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// Store is what the worker needs from an outbox backend.
type Store interface {
	Add(ctx context.Context, record appoutbox.EventRecord) error
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// MemoryStore keeps outbox entries in memory. It backs the default storage
// mode and the worker tests; delivery guarantees match the mongo store minus
// durability across restarts.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*EventDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*EventDocument)}
}

func (s *MemoryStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.items[record.ID] = &EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
	}
	return nil
}

// Claim hands out the oldest due NEW or FAILED entry, oldest first so
// per-aggregate ordering is preserved for a single worker.
func (s *MemoryStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	due := make([]*EventDocument, 0)
	for _, doc := range s.items {
		if (doc.State == stateNew || doc.State == stateFailed) && !doc.NextAttempt.After(now) {
			due = append(due, doc)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].OccurredAt.Before(due[j].OccurredAt) })
	doc := due[0]
	doc.State = stateClaimed
	doc.ClaimedBy = workerID
	doc.ClaimedAt = now
	copied := *doc
	return &copied, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.items[id]; ok {
		doc.State = stateSent
		doc.SentAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.items[id]; ok {
		doc.State = stateFailed
		doc.NextAttempt = next
		doc.LastError = errMsg
		doc.Attempts++
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
