package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// maxTurnAttempts bounds redelivery of retryable failures. Connection
// errors toward the model backend nack up to this many deliveries,
// then surface as a terminal failed event.
const maxTurnAttempts = 3

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	chatService    IChatService
	eventPublisher events.ChatEventPublisher
	locks          *conversationLocks
	logger         logger.ILogger

	// Delivery counts keyed by message UUID. The broker redelivers a
	// fresh copy of the originally published message on every nack,
	// so anything stamped onto the delivered copy's metadata is lost;
	// the count has to live on the consumer.
	attemptsMu sync.Mutex
	attempts   map[string]int
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	chatService IChatService,
	eventPublisher events.ChatEventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		chatService:    chatService,
		eventPublisher: eventPublisher,
		locks:          newConversationLocks(),
		logger:         log,
		attempts:       make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var turn dto.ChatTurnMessage
	if err := json.Unmarshal(msg.Payload, &turn); err != nil {
		cs.logger.Error("ChatConsumer", "Failed to unmarshal turn", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	// Serialize per conversation so interleaved turns cannot corrupt
	// history ordering. Turns still creating their conversation
	// serialize per user instead.
	lockKey := turn.UserId.String()
	if turn.ConversationId != nil {
		lockKey = turn.ConversationId.String()
	}
	cs.locks.Lock(lockKey)
	defer cs.locks.Unlock(lockKey)

	cs.logger.Info("ChatConsumer", "Processing turn", map[string]interface{}{
		"user_id":         turn.UserId,
		"temp_message_id": turn.TempMessageId,
	})

	_, err := cs.chatService.ExecuteTurn(ctx, ChatTurn{
		UserId:         turn.UserId,
		Message:        turn.Message,
		ConversationId: turn.ConversationId,
		TempMessageId:  turn.TempMessageId,
	})
	if err == nil {
		cs.clearAttempts(msg.UUID)
		msg.Ack()
		return
	}

	var backendErr *BackendUnavailableError
	if errors.As(err, &backendErr) {
		if attempt := cs.recordAttempt(msg.UUID); attempt < maxTurnAttempts {
			cs.logger.Warn("ChatConsumer", "Backend unavailable, retrying turn", map[string]interface{}{
				"temp_message_id": turn.TempMessageId,
				"attempt":         attempt,
			})
			msg.Nack()
			return
		}
	}

	// Terminal: either the error class is not retryable or retries
	// are exhausted. Tell the user and drop the message.
	cs.logger.Error("ChatConsumer", "Turn failed", map[string]interface{}{
		"temp_message_id": turn.TempMessageId,
		"error":           err.Error(),
	})
	cs.clearAttempts(msg.UUID)
	cs.publishFailed(ctx, turn, TurnUserMessage(err))
	msg.Ack()
}

// recordAttempt counts one more delivery of the message. Redelivered
// copies keep the original UUID, which is what makes the count
// survive a nack.
func (cs *consumerService) recordAttempt(messageUUID string) int {
	cs.attemptsMu.Lock()
	defer cs.attemptsMu.Unlock()
	if cs.attempts == nil {
		cs.attempts = make(map[string]int)
	}
	cs.attempts[messageUUID]++
	return cs.attempts[messageUUID]
}

func (cs *consumerService) clearAttempts(messageUUID string) {
	cs.attemptsMu.Lock()
	defer cs.attemptsMu.Unlock()
	delete(cs.attempts, messageUUID)
}

func (cs *consumerService) publishFailed(ctx context.Context, turn dto.ChatTurnMessage, userMessage string) {
	if cs.eventPublisher == nil {
		return
	}
	evt := events.NewMessageFailed(turn.UserId, turn.TempMessageId, userMessage)
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.logger.Error("ChatConsumer", "Failed to publish failure event", map[string]interface{}{
			"temp_message_id": turn.TempMessageId,
			"error":           err.Error(),
		})
	}
}
