package mongo

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/cashier"
)

// ==================== Usage Store ====================

func usageDocID(userID, key string, window time.Time) string {
	return userID + ":" + key + ":" + strconv.FormatInt(window.UTC().Unix(), 10)
}

// IncrementUsage upserts the counter with $inc. When limit applies the
// filter also requires room for delta; a full counter then fails the
// filter, the upsert collides on _id and the duplicate key reports the
// quota as exhausted.
func (s *Store) IncrementUsage(ctx context.Context, userID, key string, window time.Time, delta, limit int64) (int64, error) {
	window = window.UTC()
	docID := usageDocID(userID, key, window)
	if limit >= 0 && delta > limit {
		current, err := s.GetUsage(ctx, userID, key, window)
		if err != nil {
			return 0, err
		}
		return current, cashier.ErrQuotaExceeded
	}

	filter := bson.M{"_id": docID}
	if limit >= 0 {
		filter["count"] = bson.M{"$lte": limit - delta}
	}
	update := bson.M{
		"$inc": bson.M{"count": delta},
		"$set": bson.M{"updated_at": now()},
		"$setOnInsert": bson.M{
			"user_id":      userID,
			"key":          key,
			"window_start": window,
		},
	}

	var m usageModel
	err := s.mdb.Collection(colUsage).
		FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).
		Decode(&m)
	if err == nil {
		return m.Count, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return 0, wrap("increment usage", err, nil)
	}

	current, err := s.GetUsage(ctx, userID, key, window)
	if err != nil {
		return 0, err
	}
	return current, cashier.ErrQuotaExceeded
}

func (s *Store) GetUsage(ctx context.Context, userID, key string, window time.Time) (int64, error) {
	var m usageModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": usageDocID(userID, key, window)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, wrap("get usage", err, nil)
	}
	return m.Count, nil
}

// PurgeUsage drops closed windows older than before, keeping lifetime
// counters stored under the zero window.
func (s *Store) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*usageModel)(nil)).
		Filter(bson.M{"window_start": bson.M{"$lt": before.UTC(), "$gt": time.Time{}}}).
		Exec(ctx)
	if err != nil {
		return 0, wrap("purge usage", err, nil)
	}
	return res.DeletedCount(), nil
}
