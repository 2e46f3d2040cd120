package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type GuestProfile struct {
	ConversationID string `gorm:"column:conversation_id;type:text;primaryKey" json:"conversation_id"`
	DisplayName    string `gorm:"column:display_name;type:text" json:"display_name"`
	Language       string `gorm:"column:language;type:text" json:"language"` // BCP-47, ex: en-US
	PhoneNumber    string `gorm:"column:phone_number;type:text" json:"phone_number"`

	Tags pq.StringArray `gorm:"column:tags;type:text[]" json:"tags"` // vip, returning, ...

	// JSONB: room preferences, upcoming stay, free-form notes
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (GuestProfile) TableName() string { return "guest_profiles" }
