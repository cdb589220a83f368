package dto

import (
	"time"

	"github.com/google/uuid"
)

// SendChatRequest is the body of POST /chat/v1/message. The length
// cap is configured (CHAT_MAX_MESSAGE_LENGTH) and enforced by the
// controller: oversized messages never reach the queue.
type SendChatRequest struct {
	Message        string     `json:"message" validate:"required"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
}

// SendChatAck is returned immediately after a turn is enqueued. The
// client correlates later lifecycle events by TempMessageId.
type SendChatAck struct {
	Success       bool   `json:"success"`
	Pending       bool   `json:"pending"`
	TempMessageId string `json:"temp_message_id"`
	Message       string `json:"message"`
}

// SendChatSyncResponse is the synchronous fallback response shape.
type SendChatSyncResponse struct {
	Success        bool       `json:"success"`
	Response       string     `json:"response,omitempty"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	Details        string     `json:"details,omitempty"`
}

// ChatTurnMessage is the queue payload for one asynchronous turn.
type ChatTurnMessage struct {
	UserId         uuid.UUID  `json:"user_id"`
	Message        string     `json:"message"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	TempMessageId  string     `json:"temp_message_id"`
}

type GetConversationsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetConversationMessagesResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
