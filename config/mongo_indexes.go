package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return errors.New("mongo database is nil; call InitMongo() first")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	flushes := db.Collection("flush_log")
	_, err := flushes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "flush_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_flush_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_conversation_ts"),
		},
	})
	if err != nil {
		return err
	}

	conversations := db.Collection("conversations")
	_, err = conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_conversation_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "channel", Value: 1}, {Key: "last_message_at", Value: -1}},
			Options: options.Index().SetName("by_channel_last_message"),
		},
	})
	return err
}
