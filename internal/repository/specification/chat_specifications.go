package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByConversationID scopes message queries to one conversation.
type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// ByUserID scopes queries to the requesting user. Cross-user access
// is rejected upstream; this keeps the query itself tenant-safe.
type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
