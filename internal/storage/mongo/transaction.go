package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lugondev/go-solclient/internal/storage"
)

type mongoTransactionRecordRepository struct {
	collection *mongo.Collection
}

func (r *mongoTransactionRecordRepository) Save(ctx context.Context, rec *storage.TransactionRecord) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"signature": rec.Signature}
	update := bson.M{
		"$set": bson.M{
			"status":     rec.Status,
			"slot":       rec.Slot,
			"error":      rec.Error,
			"lamports":   rec.Lamports,
			"updated_at": rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        rec.ID,
			"created_at": rec.CreatedAt,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *mongoTransactionRecordRepository) FindBySignature(ctx context.Context, signature string) (*storage.TransactionRecord, error) {
	var rec storage.TransactionRecord
	err := r.collection.FindOne(ctx, bson.M{"signature": signature}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *mongoTransactionRecordRepository) FindByStatus(ctx context.Context, status storage.TransactionStatus, limit int, offset int) ([]*storage.TransactionRecord, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSkip(int64(offset)).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*storage.TransactionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *mongoTransactionRecordRepository) UpdateStatus(ctx context.Context, signature string, status storage.TransactionStatus, slot uint64, errMsg string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"signature": signature}, bson.M{"$set": bson.M{
		"status":     status,
		"slot":       slot,
		"error":      errMsg,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}
