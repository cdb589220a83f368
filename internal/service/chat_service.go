package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

// ChatTurn is one unit of work for the pipeline: a user message bound
// for the model backend, optionally continuing an existing
// conversation.
type ChatTurn struct {
	UserId         uuid.UUID
	Message        string
	ConversationId *uuid.UUID
	TempMessageId  string
}

// TurnResult is what a completed turn produced.
type TurnResult struct {
	ConversationId uuid.UUID
	Response       string
}

type IChatService interface {
	// QueueChat validates and enqueues a turn, returning an ack the
	// client uses to correlate lifecycle events.
	QueueChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatAck, error)

	// SendChatSync runs the full turn inline. Fallback path for
	// clients without a websocket.
	SendChatSync(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatSyncResponse, error)

	// ExecuteTurn runs the pipeline for one turn: resolve principal,
	// resolve conversation, stream the model response, then persist
	// both sides of the exchange in one transaction. A failed backend
	// call writes nothing, so nacked redeliveries cannot stack up
	// rows. Lifecycle events are published along the way; the
	// terminal failed event is the caller's responsibility so retries
	// do not spam the channel.
	ExecuteTurn(ctx context.Context, turn ChatTurn) (*TurnResult, error)

	GetConversations(ctx context.Context, userId uuid.UUID) ([]*dto.GetConversationsResponse, error)
	GetConversationMessages(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.GetConversationMessagesResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	eventPublisher   events.ChatEventPublisher
	userCache        *memory.UserCache
	logger           logger.ILogger

	systemPrompt   string
	titleMaxLength int

	// Raw error detail in sync responses, only outside production.
	exposeErrorDetails bool
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	eventPublisher events.ChatEventPublisher,
	userCache *memory.UserCache,
	log logger.ILogger,
	systemPrompt string,
	titleMaxLength int,
	exposeErrorDetails bool,
) IChatService {
	if systemPrompt == "" {
		systemPrompt = constant.DefaultSystemPrompt
	}
	if titleMaxLength <= 0 {
		titleMaxLength = 50
	}
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		userCache:        userCache,
		logger:           log,
		systemPrompt:     systemPrompt,
		titleMaxLength:   titleMaxLength,

		exposeErrorDetails: exposeErrorDetails,
	}
}

func (cs *chatService) QueueChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatAck, error) {
	// A bad conversation id is rejected here, before the turn ever
	// reaches the queue.
	if err := cs.authorizeConversation(ctx, userId, request.ConversationId); err != nil {
		return nil, err
	}

	tempMessageId := uuid.NewString()

	payload := dto.ChatTurnMessage{
		UserId:         userId,
		Message:        request.Message,
		ConversationId: request.ConversationId,
		TempMessageId:  tempMessageId,
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if err := cs.publisherService.Publish(ctx, payloadJson); err != nil {
		return nil, err
	}

	cs.logger.Info("ChatService", "Turn enqueued", map[string]interface{}{
		"user_id":         userId,
		"temp_message_id": tempMessageId,
	})

	return &dto.SendChatAck{
		Success:       true,
		Pending:       true,
		TempMessageId: tempMessageId,
		Message:       constant.PendingAckMessage,
	}, nil
}

func (cs *chatService) SendChatSync(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatSyncResponse, error) {
	if err := cs.authorizeConversation(ctx, userId, request.ConversationId); err != nil {
		return nil, err
	}

	turn := ChatTurn{
		UserId:         userId,
		Message:        request.Message,
		ConversationId: request.ConversationId,
		TempMessageId:  uuid.NewString(),
	}

	result, err := cs.ExecuteTurn(ctx, turn)
	if err != nil {
		// No queue behind the sync path, so the terminal failed event
		// is published here instead of by the consumer.
		cs.publishEvent(ctx, events.NewMessageFailed(userId, turn.TempMessageId, TurnUserMessage(err)))
		res := &dto.SendChatSyncResponse{
			Success: false,
			Error:   TurnUserMessage(err),
		}
		if cs.exposeErrorDetails {
			res.Details = err.Error()
		}
		return res, err
	}

	return &dto.SendChatSyncResponse{
		Success:        true,
		Response:       result.Response,
		ConversationId: &result.ConversationId,
	}, nil
}

func (cs *chatService) ExecuteTurn(ctx context.Context, turn ChatTurn) (*TurnResult, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if err := cs.resolvePrincipal(ctx, uow, turn.UserId); err != nil {
		return nil, err
	}

	cs.publishEvent(ctx, events.NewMessageProcessing(turn.UserId, turn.TempMessageId, constant.StatusThinking))

	conversation, isNew, err := cs.resolveConversation(ctx, uow, turn)
	if err != nil {
		var accessErr *ConversationAccessError
		if errors.As(err, &accessErr) {
			return nil, err
		}
		return nil, &GenerationError{Err: err}
	}

	history := []llm.Message{{Role: constant.RoleSystem, Content: cs.systemPrompt}}
	if !isNew {
		history, err = cs.loadHistory(ctx, uow, conversation.Id)
		if err != nil {
			return nil, &GenerationError{Err: err}
		}
	}
	history = append(history, llm.Message{Role: constant.RoleUser, Content: turn.Message})

	stream := llm.StreamEvents{
		OnPartial: func(content string) {
			cs.publishEvent(ctx, events.NewMessageStreaming(turn.UserId, turn.TempMessageId, content))
		},
		OnToolCall: func(name string) {
			status := fmt.Sprintf("Using tool: %s", name)
			cs.publishEvent(ctx, events.NewMessageProcessing(turn.UserId, turn.TempMessageId, status))
		},
		OnToolDone: func(name string) {
			status := fmt.Sprintf("Tool completed: %s", name)
			cs.publishEvent(ctx, events.NewMessageProcessing(turn.UserId, turn.TempMessageId, status))
		},
	}

	response, err := cs.llmProvider.ChatStream(ctx, history, stream)
	if err != nil {
		cs.logger.Error("ChatService", "Model call failed", map[string]interface{}{
			"user_id":         turn.UserId,
			"conversation_id": conversation.Id,
			"error":           err.Error(),
		})
		return nil, classifyBackendError(err)
	}

	if err := cs.persistTurn(ctx, uow, turn, conversation, isNew, response); err != nil {
		return nil, &GenerationError{Err: err}
	}

	cs.publishEvent(ctx, events.NewMessageProcessed(turn.UserId, turn.TempMessageId, conversation.Id, response))

	return &TurnResult{ConversationId: conversation.Id, Response: response}, nil
}

// persistTurn writes the turn's rows in one transaction: the
// conversation when it is new, then the user and assistant messages.
// Nothing is written until the backend has answered, so a failed turn
// leaves the store untouched.
func (cs *chatService) persistTurn(ctx context.Context, uow unitofwork.UnitOfWork, turn ChatTurn, conversation *entity.Conversation, isNew bool, response string) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if isNew {
		if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
			_ = uow.Rollback()
			return err
		}
	}

	userMessage := &entity.ConversationMessage{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         turn.UserId,
		Role:           constant.RoleUser,
		Content:        turn.Message,
		CreatedAt:      time.Now(),
	}
	if err := uow.ConversationMessageRepository().Create(ctx, userMessage); err != nil {
		_ = uow.Rollback()
		return err
	}

	assistantMessage := &entity.ConversationMessage{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         turn.UserId,
		Role:           constant.RoleAssistant,
		Content:        response,
		CreatedAt:      time.Now(),
	}
	if err := uow.ConversationMessageRepository().Create(ctx, assistantMessage); err != nil {
		_ = uow.Rollback()
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	// Freshness ordering only, not worth failing a committed turn.
	if err := uow.ConversationRepository().Touch(ctx, conversation.Id); err != nil {
		cs.logger.Warn("ChatService", "Failed to touch conversation", map[string]interface{}{
			"conversation_id": conversation.Id,
			"error":           err.Error(),
		})
	}

	return nil
}

// resolvePrincipal verifies the turn's user exists. Guest turns (nil
// UUID) skip the check: their conversations are unowned on both
// sides.
func (cs *chatService) resolvePrincipal(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) error {
	if userId == uuid.Nil {
		return nil
	}

	if _, found := cs.userCache.Get(userId); found {
		return nil
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return &GenerationError{Err: err}
	}
	if user == nil {
		return &UserNotFoundError{UserID: userId.String()}
	}

	cs.userCache.Save(user)
	return nil
}

// resolveConversation finds the turn's conversation, or builds a
// fresh one when none was named or the id matches nothing. The fresh
// conversation is not persisted here: no row may exist until the
// backend has answered. An id that resolves to another user's
// conversation fails the turn outright.
func (cs *chatService) resolveConversation(ctx context.Context, uow unitofwork.UnitOfWork, turn ChatTurn) (*entity.Conversation, bool, error) {
	if turn.ConversationId != nil {
		conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: *turn.ConversationId})
		if err != nil {
			return nil, false, err
		}
		if conversation != nil {
			if conversation.UserId != turn.UserId {
				return nil, false, &ConversationAccessError{ConversationID: turn.ConversationId.String()}
			}
			return conversation, false, nil
		}
	}

	conversation := &entity.Conversation{
		Id:        uuid.New(),
		UserId:    turn.UserId,
		Title:     cs.deriveTitle(turn.Message),
		CreatedAt: time.Now(),
	}
	return conversation, true, nil
}

// authorizeConversation rejects unknown or foreign conversation ids
// at the boundary, before a turn is enqueued or executed.
func (cs *chatService) authorizeConversation(ctx context.Context, userId uuid.UUID, conversationId *uuid.UUID) error {
	if conversationId == nil {
		return nil
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: *conversationId})
	if err != nil {
		return err
	}
	if conversation == nil || conversation.UserId != userId {
		return &ConversationAccessError{ConversationID: conversationId.String()}
	}
	return nil
}

// deriveTitle takes the opening of the first message, rune-safe.
func (cs *chatService) deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	runes := []rune(title)
	if len(runes) > cs.titleMaxLength {
		return string(runes[:cs.titleMaxLength])
	}
	return title
}

func (cs *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID) ([]llm.Message, error) {
	stored, err := uow.ConversationMessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(stored)+1)
	history = append(history, llm.Message{Role: constant.RoleSystem, Content: cs.systemPrompt})
	for _, msg := range stored {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

// publishEvent is best-effort: a dead event bus degrades the live
// experience but never fails the turn itself.
func (cs *chatService) publishEvent(ctx context.Context, event events.ChatEvent) {
	if cs.eventPublisher == nil {
		return
	}
	if err := cs.eventPublisher.Publish(ctx, event); err != nil {
		cs.logger.Warn("ChatService", "Failed to publish lifecycle event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (cs *chatService) GetConversations(ctx context.Context, userId uuid.UUID) ([]*dto.GetConversationsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetConversationsResponse, len(conversations))
	for i, c := range conversations {
		responses[i] = &dto.GetConversationsResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
	}
	return responses, nil
}

func (cs *chatService) GetConversationMessages(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.GetConversationMessagesResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// Ownership gate before exposing the transcript.
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, nil
	}

	messages, err := uow.ConversationMessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetConversationMessagesResponse, len(messages))
	for i, m := range messages {
		responses[i] = &dto.GetConversationMessagesResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return responses, nil
}
