package service

import (
	"fmt"

	"ai-chat-be/internal/constant"
	"ai-chat-be/pkg/llm"
)

// UserNotFoundError means the turn named a principal that does not
// exist. Retrying cannot fix it, so the consumer acks the message.
type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.UserID)
}

func (e *UserNotFoundError) UserMessage() string {
	return constant.ErrMsgUserNotFound
}

// ConversationAccessError means the turn named a conversation owned
// by another user. Fatal, and deliberately indistinguishable from a
// missing conversation on the client side.
type ConversationAccessError struct {
	ConversationID string
}

func (e *ConversationAccessError) Error() string {
	return fmt.Sprintf("conversation %s is not accessible to the caller", e.ConversationID)
}

func (e *ConversationAccessError) UserMessage() string {
	return constant.ErrMsgConversationDenied
}

// BackendUnavailableError wraps connection-class failures talking to
// the model backend. These are worth retrying.
type BackendUnavailableError struct {
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("model backend unavailable: %v", e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

func (e *BackendUnavailableError) UserMessage() string {
	return constant.ErrMsgBackendUnavailable
}

// GenerationError wraps any other failure during response
// generation. Not retried.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) UserMessage() string {
	return constant.ErrMsgGeneration
}

// classifyBackendError sorts a model-call failure into the retryable
// connection class or the terminal generation class.
func classifyBackendError(err error) error {
	if llm.IsConnectionError(err) {
		return &BackendUnavailableError{Err: err}
	}
	return &GenerationError{Err: err}
}

// TurnUserMessage returns the user-safe message for a pipeline error.
// Raw diagnostics never cross this boundary.
func TurnUserMessage(err error) string {
	type userMessager interface {
		UserMessage() string
	}
	if um, ok := err.(userMessager); ok {
		return um.UserMessage()
	}
	return constant.ErrMsgGeneration
}
