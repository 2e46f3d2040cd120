package mongo

import (
	"context"
	"time"

	"github.com/yoockh/innkeeper/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FlushRepository interface {
	Insert(ctx context.Context, f *models.FlushRecord) error
	Complete(ctx context.Context, flushID, status, reply, errMsg string, processingMS int64) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.FlushRecord, error)
}

type flushRepo struct {
	col *mongo.Collection
}

func NewFlushRepo(db *mongo.Database) FlushRepository {
	return &flushRepo{col: db.Collection("flush_log")}
}

func (r *flushRepo) Insert(ctx context.Context, f *models.FlushRecord) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, f)
	return err
}

func (r *flushRepo) Complete(ctx context.Context, flushID, status, reply, errMsg string, processingMS int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"flush_id": flushID},
		bson.M{"$set": bson.M{
			"status":             status,
			"reply":              reply,
			"error":              errMsg,
			"processing_time_ms": processingMS,
		}},
	)
	return err
}

func (r *flushRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.FlushRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.FlushRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
