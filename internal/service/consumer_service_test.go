package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChatService lets tests script ExecuteTurn outcomes.
type stubChatService struct {
	IChatService
	result *TurnResult
	err    error

	mu    sync.Mutex
	calls int
}

func (s *stubChatService) ExecuteTurn(context.Context, ChatTurn) (*TurnResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.result, s.err
}

func (s *stubChatService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTurnMessage(t *testing.T) (*message.Message, dto.ChatTurnMessage) {
	t.Helper()
	turn := dto.ChatTurnMessage{
		UserId:        uuid.New(),
		Message:       "Hello",
		TempMessageId: "tmp-1",
	}
	payload, err := json.Marshal(turn)
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload), turn
}

func assertAcked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Acked():
	case <-time.After(time.Second):
		t.Fatal("message was not acked")
	}
}

func assertNacked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Nacked():
	case <-time.After(time.Second):
		t.Fatal("message was not nacked")
	}
}

func newTestConsumer(stub *stubChatService, publisher *recorderPublisher) *consumerService {
	return &consumerService{
		topicName:      "PROCESS_CHAT_TURN",
		chatService:    stub,
		eventPublisher: publisher,
		locks:          newConversationLocks(),
		logger:         nopLogger{},
	}
}

func TestConsumerAcksSuccessfulTurn(t *testing.T) {
	stub := &stubChatService{result: &TurnResult{ConversationId: uuid.New(), Response: "hi"}}
	publisher := &recorderPublisher{}
	consumer := newTestConsumer(stub, publisher)

	msg, _ := newTurnMessage(t)
	consumer.processMessage(context.Background(), msg)

	assertAcked(t, msg)
	assert.Empty(t, publisher.events)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	consumer := newTestConsumer(&stubChatService{}, &recorderPublisher{})

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	consumer.processMessage(context.Background(), msg)

	assertAcked(t, msg)
}

func TestConsumerFailsUnknownUserWithoutRetry(t *testing.T) {
	stub := &stubChatService{err: &UserNotFoundError{UserID: uuid.NewString()}}
	publisher := &recorderPublisher{}
	consumer := newTestConsumer(stub, publisher)

	msg, turn := newTurnMessage(t)
	consumer.processMessage(context.Background(), msg)

	assertAcked(t, msg)
	assert.Equal(t, 1, stub.callCount())

	failed := publisher.byType(events.TypeMessageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, constant.ErrMsgUserNotFound, failed[0].Payload()["error"])
	assert.Equal(t, turn.TempMessageId, failed[0].Payload()["temp_message_id"])
}

func TestConsumerNacksConnectionFailures(t *testing.T) {
	stub := &stubChatService{err: &BackendUnavailableError{Err: assert.AnError}}
	publisher := &recorderPublisher{}
	consumer := newTestConsumer(stub, publisher)

	msg, _ := newTurnMessage(t)
	consumer.processMessage(context.Background(), msg)

	assertNacked(t, msg)
	// Not terminal yet: the channel stays silent until retries run out.
	assert.Empty(t, publisher.byType(events.TypeMessageFailed))
}

// The broker redelivers a fresh copy of the originally published
// message on every nack, so this test drives a real broker instead of
// hand-feeding deliveries: the give-up logic must not depend on
// anything stamped onto a delivered copy.
func TestConsumerGivesUpAfterMaxAttempts(t *testing.T) {
	stub := &stubChatService{err: &BackendUnavailableError{Err: assert.AnError}}
	publisher := &recorderPublisher{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, "PROCESS_CHAT_TURN", stub, publisher, nopLogger{})
	require.NoError(t, consumer.Consume(context.Background()))

	turn := dto.ChatTurnMessage{UserId: uuid.New(), Message: "Hello", TempMessageId: "tmp-1"}
	payload, err := json.Marshal(turn)
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish("PROCESS_CHAT_TURN", message.NewMessage(watermill.NewUUID(), payload)))

	// Exactly one terminal failed event once retries run out.
	require.Eventually(t, func() bool {
		return len(publisher.byType(events.TypeMessageFailed)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	failed := publisher.byType(events.TypeMessageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, constant.ErrMsgBackendUnavailable, failed[0].Payload()["error"])
	assert.Equal(t, maxTurnAttempts, stub.callCount())

	// Acked means gone: no further deliveries arrive.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, maxTurnAttempts, stub.callCount())
	assert.Len(t, publisher.byType(events.TypeMessageFailed), 1)
}

func TestConsumerFailsTerminalGenerationError(t *testing.T) {
	stub := &stubChatService{err: &GenerationError{Err: assert.AnError}}
	publisher := &recorderPublisher{}
	consumer := newTestConsumer(stub, publisher)

	msg, _ := newTurnMessage(t)
	consumer.processMessage(context.Background(), msg)

	assertAcked(t, msg)
	assert.Equal(t, 1, stub.callCount())

	failed := publisher.byType(events.TypeMessageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, constant.ErrMsgGeneration, failed[0].Payload()["error"])
}
