package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/innkeeper/internal/models"
	"github.com/yoockh/innkeeper/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepository interface {
	Touch(ctx context.Context, c *models.Conversation) error
	GetByConversationID(ctx context.Context, conversationID string) (*models.Conversation, error)
	Close(ctx context.Context, conversationID string, closedAt time.Time) error
}

type conversationRepo struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepository {
	return &conversationRepo{col: db.Collection("conversations")}
}

// Touch upserts the registry entry, bumping last_message_at and the message
// counter. Empty routing fields never overwrite known ones.
func (r *conversationRepo) Touch(ctx context.Context, c *models.Conversation) error {
	now := c.LastMessageAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := bson.M{
		"last_message_at": now,
		"status":          models.ConversationOpen,
	}
	if c.DisplayName != "" {
		set["display_name"] = c.DisplayName
	}
	if c.ReplyTo != "" {
		set["reply_to"] = c.ReplyTo
	}
	if c.Channel != "" {
		set["channel"] = c.Channel
	}

	_, err := r.col.UpdateOne(ctx,
		bson.M{"conversation_id": c.ConversationID},
		bson.M{
			"$set":         set,
			"$inc":         bson.M{"message_count": 1},
			"$setOnInsert": bson.M{"created_at": now},
			"$unset":       bson.M{"closed_at": ""},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *conversationRepo) GetByConversationID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var c models.Conversation
	err := r.col.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *conversationRepo) Close(ctx context.Context, conversationID string, closedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{"$set": bson.M{
			"status":    models.ConversationClosed,
			"closed_at": closedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
