package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is owned by one user. Guest conversations carry the
// nil UUID owner. Never updated after creation except through
// appended messages.
type Conversation struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "agent_conversations"
}
