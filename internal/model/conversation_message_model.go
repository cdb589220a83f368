package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConversationMessage rows are append-only; the pipeline never
// mutates or deletes them. The JSON columns stay empty objects for
// the base chat flow and exist for attachments, tool usage and
// metadata recorded by richer agents.
type ConversationMessage struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role           string         `gorm:"type:varchar(50);not null"`
	Content        string         `gorm:"type:text;not null"`
	Attachments    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	ToolCalls      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	ToolResults    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	Usage          datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	Meta           datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (ConversationMessage) TableName() string {
	return "agent_conversation_messages"
}
