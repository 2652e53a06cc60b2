package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainoffer "datecraft/internal/domain/offer"
)

type OfferRepository struct {
	col *mongo.Collection
}

func NewOfferRepository(db *mongo.Database) *OfferRepository {
	return &OfferRepository{col: db.Collection("agg_offer")}
}

func (r *OfferRepository) ByID(ctx context.Context, id domainoffer.OfferID) (*domainoffer.Offer, error) {
	var doc offerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainoffer.ErrOfferNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OfferRepository) Save(ctx context.Context, off *domainoffer.Offer) error {
	doc := newOfferDocument(off)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type offerDocument struct {
	ID               string `bson:"_id"`
	HostID           string `bson:"host_id"`
	Title            string `bson:"title"`
	Location         string `bson:"location"`
	MaxGuests        int    `bson:"max_guests"`
	PricePerGuest    int64  `bson:"price_per_guest"`
	CancellationTier string `bson:"cancellation_tier"`
	CreatedAt        int64  `bson:"created_at"`
}

func newOfferDocument(o *domainoffer.Offer) offerDocument {
	return offerDocument{
		ID:               string(o.ID),
		HostID:           string(o.Host),
		Title:            o.Title,
		Location:         o.Location,
		MaxGuests:        o.MaxGuests,
		PricePerGuest:    o.PricePerGuest,
		CancellationTier: string(o.CancellationTier),
		CreatedAt:        o.CreatedAt.UnixMilli(),
	}
}

func (d offerDocument) toAggregate() *domainoffer.Offer {
	return &domainoffer.Offer{
		ID:               domainoffer.OfferID(d.ID),
		Host:             domainoffer.HostID(d.HostID),
		Title:            d.Title,
		Location:         d.Location,
		MaxGuests:        d.MaxGuests,
		PricePerGuest:    d.PricePerGuest,
		CancellationTier: domainoffer.CancellationTier(d.CancellationTier),
		CreatedAt:        time.UnixMilli(d.CreatedAt).UTC(),
	}
}
