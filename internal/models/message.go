package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleGuest     = "guest"
	RoleAssistant = "assistant"
)

type ConversationLog struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID string         `gorm:"column:conversation_id;type:text;index" json:"conversation_id"`
	Role           string         `gorm:"column:role;type:text" json:"role"` // "guest" | "assistant"
	Content        string         `gorm:"column:content;type:text" json:"content"`
	FragmentCount  int            `gorm:"column:fragment_count" json:"fragment_count,omitempty"`
	Timestamp      time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (ConversationLog) TableName() string { return "conversation_logs" }
