package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "datecraft/internal/app/outbox"
)

type capturingProducer struct {
	topics   []string
	keys     []string
	payloads [][]byte
	headers  []map[string]string
	fail     error
}

func (p *capturingProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	p.headers = append(p.headers, headers)
	return nil
}

func addRecord(t *testing.T, store Store, id, name string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"booking_id": "bkg-1"})
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
		Aggregate:  "bkg-1",
	}))
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	store := NewMemoryStore()
	producer := &capturingProducer{}
	worker := &Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "w-1"}
	addRecord(t, store, "evt-1", "booking.cancelled")

	require.NoError(t, worker.ProcessOnce(context.Background()))

	require.Len(t, producer.topics, 1)
	assert.Equal(t, "dev.booking.events.v1", producer.topics[0])
	assert.Equal(t, "bkg-1", producer.keys[0])
	assert.Equal(t, "application/cloudevents+json", producer.headers[0]["content-type"])

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(producer.payloads[0], &envelope))
	assert.Equal(t, "1.0", envelope["specversion"])
	assert.Equal(t, "booking.cancelled.v1", envelope["type"])
	assert.Equal(t, "app://datecraft", envelope["source"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bkg-1", data["booking_id"])

	// the entry is consumed, a second pass finds nothing
	require.NoError(t, worker.ProcessOnce(context.Background()))
	assert.Len(t, producer.topics, 1)
}

func TestWorkerRoutesChatEventsSeparately(t *testing.T) {
	store := NewMemoryStore()
	producer := &capturingProducer{}
	worker := &Worker{Store: store, Producer: producer, ID: "w-1"}
	addRecord(t, store, "evt-1", "chat.message_posted")

	require.NoError(t, worker.ProcessOnce(context.Background()))
	require.Len(t, producer.topics, 1)
	assert.Equal(t, "chat.events.v1", producer.topics[0])
}

func TestWorkerRetriesFailedPublishWithBackoff(t *testing.T) {
	store := NewMemoryStore()
	producer := &capturingProducer{fail: errors.New("broker down")}
	worker := &Worker{Store: store, Producer: producer, ID: "w-1", Backoff: []time.Duration{time.Hour}}
	addRecord(t, store, "evt-1", "booking.created")

	require.NoError(t, worker.ProcessOnce(context.Background()))
	assert.Empty(t, producer.topics)

	doc := store.items["evt-1"]
	assert.Equal(t, stateFailed, doc.State)
	assert.Equal(t, 1, doc.Attempts)
	assert.NotEmpty(t, doc.LastError)

	// the retry is deferred past the backoff window
	producer.fail = nil
	require.NoError(t, worker.ProcessOnce(context.Background()))
	assert.Empty(t, producer.topics)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	worker := &Worker{}
	assert.ErrorIs(t, worker.Run(context.Background()), ErrWorkerNotConfigured)
}
