package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"datecraft/internal/app/services/payment"
	domainbooking "datecraft/internal/domain/booking"
)

// AttestationStore is the append-only audit log of payment confirmations.
type AttestationStore struct {
	col *mongo.Collection
}

func NewAttestationStore(db *mongo.Database) *AttestationStore {
	col := db.Collection("payment_attestations")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "at", Value: 1}},
	})
	return &AttestationStore{col: col}
}

func (s *AttestationStore) Append(ctx context.Context, attestation payment.Attestation) error {
	doc := bson.M{
		"booking_id":   string(attestation.BookingID),
		"confirmer_id": attestation.ConfirmerID,
		"at":           attestation.At.UnixMilli(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *AttestationStore) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]payment.Attestation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"booking_id": string(bookingID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]payment.Attestation, 0)
	for cur.Next(ctx) {
		var doc struct {
			BookingID   string `bson:"booking_id"`
			ConfirmerID string `bson:"confirmer_id"`
			At          int64  `bson:"at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, payment.Attestation{
			BookingID:   domainbooking.BookingID(doc.BookingID),
			ConfirmerID: doc.ConfirmerID,
			At:          timestampToTime(doc.At),
		})
	}
	return out, cur.Err()
}

var _ payment.Store = (*AttestationStore)(nil)
