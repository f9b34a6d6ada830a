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

const CapacityCollectionName = "Daily_capacity"

type mongoCapacityRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func newMongoCapacityRepository(db *mongo.Database, timeout time.Duration) *mongoCapacityRepository {
	return &mongoCapacityRepository{
		collection: db.Collection(CapacityCollectionName),
		timeout:    timeout,
	}
}

func (r *mongoCapacityRepository) LockDay(ctx context.Context, doctorID int64, day string, defaultCapacity int) (*model.DailyCapacity, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"doctor_id": doctorID, "day": day}
	update := bson.M{
		"$inc": bson.M{"revision": 1},
		"$setOnInsert": bson.M{
			"capacity":     defaultCapacity,
			"booked_count": 0,
			"created_at":   time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var dc model.DailyCapacity
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&dc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, schedulingerrors.ErrStaleRevision
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("daily capacity upsert returned no document for doctor %d on %s", doctorID, day)
		}
		return nil, fmt.Errorf("failed to lock daily capacity: %w", err)
	}
	return &dc, nil
}

func (r *mongoCapacityRepository) Update(ctx context.Context, dc *model.DailyCapacity) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(dc.ID)
	if err != nil {
		return fmt.Errorf("invalid daily capacity id %q: %w", dc.ID, err)
	}

	filter := bson.M{"_id": objectID, "revision": dc.Revision}
	update := bson.M{
		"$set": bson.M{"booked_count": dc.BookedCount},
		"$inc": bson.M{"revision": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update daily capacity: %w", err)
	}
	if result.MatchedCount == 0 {
		return schedulingerrors.ErrStaleRevision
	}

	dc.Revision++
	return nil
}
