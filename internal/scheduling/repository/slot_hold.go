package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"
	"clinicslots/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	HoldsCollectionName    = "Slot_holds"
	SectionsCollectionName = "Doctor_sections"
)

type mongoHoldRepository struct {
	holds    *mongo.Collection
	sections *mongo.Collection
	timeout  time.Duration
}

func newMongoHoldRepository(db *mongo.Database, timeout time.Duration) *mongoHoldRepository {
	return &mongoHoldRepository{
		holds:    db.Collection(HoldsCollectionName),
		sections: db.Collection(SectionsCollectionName),
		timeout:  timeout,
	}
}

// LockDoctor writes the doctor's section document. Inside a transaction the
// write conflicts with any other transaction holding the same section, and
// the driver retries the loser from the start.
func (r *mongoHoldRepository) LockDoctor(ctx context.Context, doctorID int64) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": doctorID}
	update := bson.M{
		"$inc": bson.M{"revision": 1},
		"$set": bson.M{"locked_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	_, err := r.sections.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return schedulingerrors.ErrStaleRevision
		}
		return fmt.Errorf("failed to lock doctor section: %w", err)
	}
	return nil
}

func (r *mongoHoldRepository) FindOverlapping(ctx context.Context, doctorID int64, start, end time.Time) ([]*model.SlotHold, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":  doctorID,
		"status":     bson.M{"$in": []model.HoldStatus{model.HoldStatusHeld, model.HoldStatusConfirmed}},
		"slot_start": bson.M{"$lt": end},
		"slot_end":   bson.M{"$gt": start},
	}

	cursor, err := r.holds.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "slot_start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []*model.SlotHold
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping holds: %w", err)
	}
	return holds, nil
}

func (r *mongoHoldRepository) FindByID(ctx context.Context, id string) (*model.SlotHold, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, id)
	}

	var hold model.SlotHold
	err = r.holds.FindOne(ctx, bson.M{"_id": objectID}).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, id)
		}
		return nil, fmt.Errorf("failed to find hold: %w", err)
	}
	return &hold, nil
}

func (r *mongoHoldRepository) Create(ctx context.Context, hold *model.SlotHold) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	hold.ID = ""
	hold.Revision = 1
	result, err := r.holds.InsertOne(ctx, hold)
	if err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		hold.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHoldRepository) Update(ctx context.Context, hold *model.SlotHold) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(hold.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrHoldNotFound, hold.ID)
	}

	filter := bson.M{"_id": objectID, "revision": hold.Revision}
	update := bson.M{
		"$set": bson.M{
			"status":     hold.Status,
			"booking_id": hold.BookingID,
			"expires_at": hold.ExpiresAt,
		},
		"$inc": bson.M{"revision": 1},
	}

	result, err := r.holds.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update hold: %w", err)
	}
	if result.MatchedCount == 0 {
		return schedulingerrors.ErrStaleRevision
	}

	hold.Revision++
	return nil
}

func (r *mongoHoldRepository) FindExpired(ctx context.Context, doctorID int64, status model.HoldStatus, cutoff time.Time, limit int) ([]*model.SlotHold, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":  doctorID,
		"status":     status,
		"expires_at": bson.M{"$lt": cutoff},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.holds.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []*model.SlotHold
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode expired holds: %w", err)
	}
	return holds, nil
}

func (r *mongoHoldRepository) DoctorsWithExpiredHolds(ctx context.Context, status model.HoldStatus, cutoff time.Time, limit int) ([]int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"status":     status,
		"expires_at": bson.M{"$lt": cutoff},
	}
	values, err := r.holds.Distinct(ctx, "doctor_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors with expired holds: %w", err)
	}

	doctorIDs := make([]int64, 0, len(values))
	for _, v := range values {
		switch id := v.(type) {
		case int64:
			doctorIDs = append(doctorIDs, id)
		case int32:
			doctorIDs = append(doctorIDs, int64(id))
		}
		if limit > 0 && len(doctorIDs) >= limit {
			break
		}
	}
	return doctorIDs, nil
}

// withTimeout bounds ctx unless it is a session context, which cannot be
// wrapped without leaving the transaction.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}
