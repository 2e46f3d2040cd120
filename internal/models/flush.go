package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FlushProcessing = "processing"
	FlushDone       = "done"
	FlushFailed     = "failed"
)

// FlushRecord is the audit trail of one coalesced batch handed to the
// reply pipeline.
type FlushRecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FlushID        string             `bson:"flush_id" json:"flush_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`

	CombinedText  string `bson:"combined_text" json:"combined_text"`
	FragmentCount int    `bson:"fragment_count" json:"fragment_count"`

	Status           string `bson:"status" json:"status"` // processing|done|failed
	Reply            string `bson:"reply,omitempty" json:"reply,omitempty"`
	Error            string `bson:"error,omitempty" json:"error,omitempty"`
	ProcessingTimeMS int64  `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
