package mapper

import (
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Conversation Mappers

func (m *ChatMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Conversation{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Conversation{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *model.ConversationMessage) *entity.ConversationMessage {
	if msg == nil {
		return nil
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.ConversationMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		Attachments:    []byte(msg.Attachments),
		ToolCalls:      []byte(msg.ToolCalls),
		ToolResults:    []byte(msg.ToolResults),
		Usage:          []byte(msg.Usage),
		Meta:           []byte(msg.Meta),
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.ConversationMessage) *model.ConversationMessage {
	if msg == nil {
		return nil
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.ConversationMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		Attachments:    jsonOrDefault(msg.Attachments, "[]"),
		ToolCalls:      jsonOrDefault(msg.ToolCalls, "[]"),
		ToolResults:    jsonOrDefault(msg.ToolResults, "[]"),
		Usage:          jsonOrDefault(msg.Usage, "{}"),
		Meta:           jsonOrDefault(msg.Meta, "{}"),
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func jsonOrDefault(raw []byte, fallback string) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(raw)
}
