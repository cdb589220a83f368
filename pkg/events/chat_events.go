package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names as broadcast to the client.
const (
	TypeMessageProcessing = "message.processing"
	TypeMessageStreaming  = "message.streaming"
	TypeMessageProcessed  = "message.processed"
	TypeMessageFailed     = "message.failed"
)

// chatEventBase carries the addressing fields shared by every chat
// lifecycle event.
type chatEventBase struct {
	User          uuid.UUID
	TempMessageID string
	OccurredAt    time.Time
}

func (e chatEventBase) UserID() string {
	return e.User.String()
}

func (e chatEventBase) Channel() string {
	return fmt.Sprintf("chat.%s", e.User)
}

func (e chatEventBase) Timestamp() time.Time {
	return e.OccurredAt
}

// MessageProcessing signals a phase change while a turn is being
// worked on ("AI is thinking...", tool brackets, etc.).
type MessageProcessing struct {
	chatEventBase
	Status string
}

func NewMessageProcessing(userID uuid.UUID, tempMessageID, status string) MessageProcessing {
	return MessageProcessing{
		chatEventBase: chatEventBase{User: userID, TempMessageID: tempMessageID, OccurredAt: time.Now()},
		Status:        status,
	}
}

func (e MessageProcessing) EventType() string { return TypeMessageProcessing }

func (e MessageProcessing) Payload() map[string]interface{} {
	return map[string]interface{}{
		"temp_message_id": e.TempMessageID,
		"status":          e.Status,
		"timestamp":       e.OccurredAt.Format(time.RFC3339),
	}
}

// MessageStreaming carries one non-empty partial chunk of the
// assistant response.
type MessageStreaming struct {
	chatEventBase
	PartialContent string
	ContentType    string
}

func NewMessageStreaming(userID uuid.UUID, tempMessageID, partialContent string) MessageStreaming {
	return MessageStreaming{
		chatEventBase:  chatEventBase{User: userID, TempMessageID: tempMessageID, OccurredAt: time.Now()},
		PartialContent: partialContent,
		ContentType:    "partial",
	}
}

func (e MessageStreaming) EventType() string { return TypeMessageStreaming }

func (e MessageStreaming) Payload() map[string]interface{} {
	return map[string]interface{}{
		"temp_message_id": e.TempMessageID,
		"partial_content": e.PartialContent,
		"event_type":      e.ContentType,
		"timestamp":       e.OccurredAt.Format(time.RFC3339),
	}
}

// MessageProcessed is the successful terminal event for a turn.
type MessageProcessed struct {
	chatEventBase
	ConversationID uuid.UUID
	Response       string
}

func NewMessageProcessed(userID uuid.UUID, tempMessageID string, conversationID uuid.UUID, response string) MessageProcessed {
	return MessageProcessed{
		chatEventBase:  chatEventBase{User: userID, TempMessageID: tempMessageID, OccurredAt: time.Now()},
		ConversationID: conversationID,
		Response:       response,
	}
}

func (e MessageProcessed) EventType() string { return TypeMessageProcessed }

func (e MessageProcessed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"temp_message_id": e.TempMessageID,
		"conversation_id": e.ConversationID.String(),
		"response":        e.Response,
		"timestamp":       e.OccurredAt.Format(time.RFC3339),
	}
}

// MessageFailed is the failure terminal event for a turn. Error holds
// a user-safe message, never raw diagnostics.
type MessageFailed struct {
	chatEventBase
	Error string
}

func NewMessageFailed(userID uuid.UUID, tempMessageID, errorMessage string) MessageFailed {
	return MessageFailed{
		chatEventBase: chatEventBase{User: userID, TempMessageID: tempMessageID, OccurredAt: time.Now()},
		Error:         errorMessage,
	}
}

func (e MessageFailed) EventType() string { return TypeMessageFailed }

func (e MessageFailed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"temp_message_id": e.TempMessageID,
		"error":           e.Error,
		"timestamp":       e.OccurredAt.Format(time.RFC3339),
	}
}

// ChatEventPublisher delivers chat lifecycle events to the owning
// user's channel. Implemented by the NATS publisher in production and
// by a recorder in tests.
type ChatEventPublisher interface {
	Publish(ctx context.Context, event ChatEvent) error
}

// NopPublisher drops every event. Used when no event transport is
// configured (e.g., synchronous-only deployments).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ChatEvent) error { return nil }
