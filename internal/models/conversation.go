package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Conversation is the registry document for one guest chat thread.
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Channel        string             `bson:"channel" json:"channel"` // whatsapp|webchat|...
	DisplayName    string             `bson:"display_name,omitempty" json:"display_name,omitempty"`
	ReplyTo        string             `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Status         string             `bson:"status" json:"status"` // open|closed

	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	LastMessageAt time.Time  `bson:"last_message_at" json:"last_message_at"`
	ClosedAt      *time.Time `bson:"closed_at,omitempty" json:"closed_at,omitempty"`

	MessageCount int64 `bson:"message_count" json:"message_count"`
}
