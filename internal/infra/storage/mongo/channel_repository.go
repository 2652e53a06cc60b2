package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "datecraft/internal/domain/chat"
)

// updateRetries bounds the CAS loop in Update. Contention on one channel is
// two users typing at each other, so collisions clear almost immediately.
const updateRetries = 5

// ChannelRepository stores one document per conversation channel. Update
// emulates the per-channel serialization of the memory backend with a
// version-guarded replace and a short retry loop.
type ChannelRepository struct {
	col *mongo.Collection
}

func NewChannelRepository(db *mongo.Database) *ChannelRepository {
	col := db.Collection("agg_channel")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &ChannelRepository{col: col}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *domainchat.Channel) error {
	doc := newChannelDocument(channel)
	doc.Version = 1
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *ChannelRepository) ByID(ctx context.Context, id domainchat.ChannelID) (*domainchat.Channel, error) {
	var doc channelDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrChannelNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChannelRepository) Update(ctx context.Context, id domainchat.ChannelID, fn func(*domainchat.Channel) error) (*domainchat.Channel, error) {
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		channel, err := r.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(channel); err != nil {
			return nil, err
		}
		doc := newChannelDocument(channel)
		doc.Version = channel.Version + 1
		filter := bson.M{"_id": doc.ID, "version": channel.Version}
		res, err := r.col.ReplaceOne(ctx, filter, doc)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			lastErr = ErrConcurrentUpdate
			continue
		}
		channel.Version = doc.Version
		return channel, nil
	}
	return nil, lastErr
}

type channelDocument struct {
	ID        string            `bson:"_id"`
	BookingID string            `bson:"booking_id"`
	HostID    string            `bson:"host_id"`
	GuestID   string            `bson:"guest_id"`
	Messages  []messageDocument `bson:"messages"`
	LastRead  map[string]int64  `bson:"last_read"`
	NextSeq   int64             `bson:"next_seq"`
	Closed    bool              `bson:"closed"`
	ClosedAt  int64             `bson:"closed_at"`
	CreatedAt int64             `bson:"created_at"`
	Version   int64             `bson:"version"`
}

type messageDocument struct {
	ID        string `bson:"id"`
	SenderID  string `bson:"sender_id"`
	Kind      string `bson:"kind"`
	Content   string `bson:"content"`
	Seq       int64  `bson:"seq"`
	CreatedAt int64  `bson:"created_at"`
	Read      bool   `bson:"read"`
}

func newChannelDocument(c *domainchat.Channel) channelDocument {
	msgs := make([]messageDocument, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, messageDocument{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Kind:      string(m.Kind),
			Content:   m.Content,
			Seq:       m.Seq,
			CreatedAt: m.CreatedAt.UnixMilli(),
			Read:      m.Read,
		})
	}
	return channelDocument{
		ID:        string(c.ID),
		BookingID: c.BookingID,
		HostID:    c.HostID,
		GuestID:   c.GuestID,
		Messages:  msgs,
		LastRead:  c.LastRead,
		NextSeq:   c.NextSeq(),
		Closed:    c.Closed,
		ClosedAt:  c.ClosedAt.UnixMilli(),
		CreatedAt: c.CreatedAt.UnixMilli(),
		Version:   c.Version,
	}
}

func (d channelDocument) toAggregate() *domainchat.Channel {
	c := &domainchat.Channel{
		ID:        domainchat.ChannelID(d.ID),
		BookingID: d.BookingID,
		HostID:    d.HostID,
		GuestID:   d.GuestID,
		LastRead:  d.LastRead,
		Closed:    d.Closed,
		ClosedAt:  timestampToTime(d.ClosedAt),
		CreatedAt: timestampToTime(d.CreatedAt),
		Version:   d.Version,
	}
	if c.LastRead == nil {
		c.LastRead = map[string]int64{}
	}
	c.Messages = make([]domainchat.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		c.Messages = append(c.Messages, domainchat.Message{
			ID:        m.ID,
			ChannelID: c.ID,
			SenderID:  m.SenderID,
			Kind:      domainchat.MessageKind(m.Kind),
			Content:   m.Content,
			Seq:       m.Seq,
			CreatedAt: timestampToTime(m.CreatedAt),
			Read:      m.Read,
		})
	}
	c.RestoreSeq(d.NextSeq)
	return c
}
