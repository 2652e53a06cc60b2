package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "datecraft/internal/domain/booking"
	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	for _, keys := range []bson.D{
		{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}},
		{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}},
		{{Key: "status", Value: 1}},
	} {
		_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: keys})
	}
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save is a version-guarded upsert: a stale aggregate never overwrites a
// newer one.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) ListActive(ctx context.Context) ([]*domainbooking.Booking, error) {
	statuses := []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}
	return r.find(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID                 string `bson:"_id"`
	OfferID            string `bson:"offer_id"`
	SlotID             string `bson:"slot_id"`
	GuestID            string `bson:"guest_id"`
	HostID             string `bson:"host_id"`
	Guests             int    `bson:"guests"`
	SpecialRequests    string `bson:"special_requests"`
	Status             string `bson:"status"`
	Policy             string `bson:"policy"`
	EventStart         int64  `bson:"event_start"`
	EventEnd           int64  `bson:"event_end"`
	PaymentConfirmed   bool   `bson:"payment_confirmed"`
	PaymentConfirmedAt int64  `bson:"payment_confirmed_at"`
	CancellationReason string `bson:"cancellation_reason"`
	RefundKind         string `bson:"refund_kind"`
	RefundPercent      int    `bson:"refund_percent"`
	ChannelID          string `bson:"channel_id"`
	CreatedAt          int64  `bson:"created_at"`
	UpdatedAt          int64  `bson:"updated_at"`
	Version            int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                 string(b.ID),
		OfferID:            string(b.OfferID),
		SlotID:             string(b.SlotID),
		GuestID:            b.GuestID,
		HostID:             b.HostID,
		Guests:             b.Guests,
		SpecialRequests:    b.SpecialRequests,
		Status:             string(b.Status),
		Policy:             string(b.Policy),
		EventStart:         b.EventStart.UnixMilli(),
		EventEnd:           b.EventEnd.UnixMilli(),
		PaymentConfirmed:   b.PaymentConfirmed,
		PaymentConfirmedAt: b.PaymentConfirmedAt.UnixMilli(),
		CancellationReason: b.CancellationReason,
		RefundKind:         string(b.Refund.Kind),
		RefundPercent:      b.Refund.Percent,
		ChannelID:          b.ChannelID,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                 domainbooking.BookingID(d.ID),
		OfferID:            domainoffer.OfferID(d.OfferID),
		SlotID:             schedule.SlotID(d.SlotID),
		GuestID:            d.GuestID,
		HostID:             d.HostID,
		Guests:             d.Guests,
		SpecialRequests:    d.SpecialRequests,
		Status:             domainbooking.Status(d.Status),
		Policy:             domainoffer.CancellationTier(d.Policy),
		EventStart:         timestampToTime(d.EventStart),
		EventEnd:           timestampToTime(d.EventEnd),
		PaymentConfirmed:   d.PaymentConfirmed,
		PaymentConfirmedAt: timestampToTime(d.PaymentConfirmedAt),
		CancellationReason: d.CancellationReason,
		Refund: domainbooking.RefundOutcome{
			Kind:    domainbooking.RefundKind(d.RefundKind),
			Percent: d.RefundPercent,
		},
		ChannelID: d.ChannelID,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
