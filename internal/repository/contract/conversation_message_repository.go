package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"
)

// ConversationMessageRepository is append-only from the pipeline's
// point of view: no update or delete operations are exposed.
type ConversationMessageRepository interface {
	Create(ctx context.Context, message *entity.ConversationMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
