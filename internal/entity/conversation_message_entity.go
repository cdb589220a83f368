package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	UserId         uuid.UUID
	Role           string
	Content        string
	Attachments    []byte
	ToolCalls      []byte
	ToolResults    []byte
	Usage          []byte
	Meta           []byte
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
