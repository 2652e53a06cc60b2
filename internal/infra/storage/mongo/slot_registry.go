package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainoffer "datecraft/internal/domain/offer"
	"datecraft/internal/domain/schedule"
)

// SlotRegistry persists time slots and blocked dates. The reserve race is
// settled by a single conditional update on the slot document, so concurrent
// claims on one slot produce exactly one winner without any app-level lock.
type SlotRegistry struct {
	slots  *mongo.Collection
	blocks *mongo.Collection
}

func NewSlotRegistry(db *mongo.Database) *SlotRegistry {
	slots := db.Collection("agg_slot")
	_, _ = slots.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "offer_id", Value: 1}, {Key: "start", Value: 1}},
	})
	blocks := db.Collection("host_blocked_dates")
	_, _ = blocks.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "date", Value: 1}},
	})
	return &SlotRegistry{slots: slots, blocks: blocks}
}

func (r *SlotRegistry) AddSlot(ctx context.Context, slot *schedule.TimeSlot) error {
	doc := newSlotDocument(slot)
	opts := options.Replace().SetUpsert(true)
	_, err := r.slots.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *SlotRegistry) Slot(ctx context.Context, id schedule.SlotID) (*schedule.TimeSlot, error) {
	var doc slotDocument
	if err := r.slots.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, schedule.ErrSlotNotFound
		}
		return nil, err
	}
	return doc.toSlot(), nil
}

func (r *SlotRegistry) SlotsByOffer(ctx context.Context, offerID domainoffer.OfferID) ([]*schedule.TimeSlot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cur, err := r.slots.Find(ctx, bson.M{"offer_id": string(offerID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*schedule.TimeSlot, 0)
	for cur.Next(ctx) {
		var doc slotDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toSlot())
	}
	return out, cur.Err()
}

// Reserve claims the slot with one conditional update. The blocked-date
// check runs first; a block landing between the check and the claim is
// resolved by the host releasing the booking, same as any late block.
func (r *SlotRegistry) Reserve(ctx context.Context, id schedule.SlotID, bookingID string, guests int, now time.Time) error {
	slot, err := r.Slot(ctx, id)
	if err != nil {
		return err
	}
	if guests > slot.Capacity {
		return schedule.ErrCapacityExceeded
	}
	blocked, err := r.IsDateBlocked(ctx, slot.HostID, slot.Date())
	if err != nil {
		return err
	}
	if blocked {
		return schedule.ErrSlotUnavailable
	}

	filter := bson.M{
		"_id":    string(id),
		"booked": false,
		"start":  bson.M{"$gt": now.UTC().UnixMilli()},
	}
	update := bson.M{"$set": bson.M{"booked": true, "booked_by": bookingID}}
	res, err := r.slots.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return schedule.ErrSlotUnavailable
	}
	return nil
}

func (r *SlotRegistry) Release(ctx context.Context, id schedule.SlotID, bookingID string) error {
	filter := bson.M{"_id": string(id), "booked": true, "booked_by": bookingID}
	update := bson.M{"$set": bson.M{"booked": false, "booked_by": ""}}
	if _, err := r.slots.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (r *SlotRegistry) BlockDate(ctx context.Context, block *schedule.BlockedDate) error {
	doc := bson.M{
		"_id":        string(block.ID),
		"host_id":    string(block.HostID),
		"date":       block.Date.UnixMilli(),
		"reason":     block.Reason,
		"created_at": block.CreatedAt.UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.blocks.ReplaceOne(ctx, bson.M{"_id": string(block.ID)}, doc, opts)
	return err
}

func (r *SlotRegistry) UnblockDate(ctx context.Context, id schedule.BlockID) error {
	res, err := r.blocks.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return schedule.ErrBlockNotFound
	}
	return nil
}

func (r *SlotRegistry) BlockedDates(ctx context.Context, hostID domainoffer.HostID) ([]*schedule.BlockedDate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := r.blocks.Find(ctx, bson.M{"host_id": string(hostID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*schedule.BlockedDate, 0)
	for cur.Next(ctx) {
		var doc blockDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toBlock())
	}
	return out, cur.Err()
}

func (r *SlotRegistry) IsDateBlocked(ctx context.Context, hostID domainoffer.HostID, date time.Time) (bool, error) {
	filter := bson.M{"host_id": string(hostID), "date": schedule.DateOnly(date).UnixMilli()}
	count, err := r.blocks.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type slotDocument struct {
	ID       string `bson:"_id"`
	OfferID  string `bson:"offer_id"`
	HostID   string `bson:"host_id"`
	Start    int64  `bson:"start"`
	End      int64  `bson:"end"`
	Capacity int    `bson:"capacity"`
	Booked   bool   `bson:"booked"`
	BookedBy string `bson:"booked_by"`
}

func newSlotDocument(s *schedule.TimeSlot) slotDocument {
	return slotDocument{
		ID:       string(s.ID),
		OfferID:  string(s.OfferID),
		HostID:   string(s.HostID),
		Start:    s.Start.UnixMilli(),
		End:      s.End.UnixMilli(),
		Capacity: s.Capacity,
		Booked:   s.Booked,
		BookedBy: s.BookedBy,
	}
}

func (d slotDocument) toSlot() *schedule.TimeSlot {
	return &schedule.TimeSlot{
		ID:       schedule.SlotID(d.ID),
		OfferID:  domainoffer.OfferID(d.OfferID),
		HostID:   domainoffer.HostID(d.HostID),
		Start:    timestampToTime(d.Start),
		End:      timestampToTime(d.End),
		Capacity: d.Capacity,
		Booked:   d.Booked,
		BookedBy: d.BookedBy,
	}
}

type blockDocument struct {
	ID        string `bson:"_id"`
	HostID    string `bson:"host_id"`
	Date      int64  `bson:"date"`
	Reason    string `bson:"reason"`
	CreatedAt int64  `bson:"created_at"`
}

func (d blockDocument) toBlock() *schedule.BlockedDate {
	return &schedule.BlockedDate{
		ID:        schedule.BlockID(d.ID),
		HostID:    domainoffer.HostID(d.HostID),
		Date:      timestampToTime(d.Date),
		Reason:    d.Reason,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

var _ schedule.Registry = (*SlotRegistry)(nil)
