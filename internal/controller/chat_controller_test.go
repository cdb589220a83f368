package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	internalWS "ai-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

// stubChatService scripts the outcomes behind the message routes.
type stubChatService struct {
	service.IChatService
	queueErr   error
	syncRes    *dto.SendChatSyncResponse
	syncErr    error
	queueCalls int
}

func (s *stubChatService) QueueChat(_ context.Context, _ uuid.UUID, _ *dto.SendChatRequest) (*dto.SendChatAck, error) {
	s.queueCalls++
	if s.queueErr != nil {
		return nil, s.queueErr
	}
	return &dto.SendChatAck{
		Success:       true,
		Pending:       true,
		TempMessageId: uuid.NewString(),
		Message:       constant.PendingAckMessage,
	}, nil
}

func (s *stubChatService) SendChatSync(_ context.Context, _ uuid.UUID, _ *dto.SendChatRequest) (*dto.SendChatSyncResponse, error) {
	return s.syncRes, s.syncErr
}

func newTestApp(svc service.IChatService, maxMessageLength int) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())

	hub := internalWS.NewHub(nil, noopLogger{})
	ctrl := NewChatController(svc, handler.NewChatWsHandler(hub, noopLogger{}), maxMessageLength)
	ctrl.RegisterRoutes(app.Group("/api"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestSendMessageAcksWithOK(t *testing.T) {
	stub := &stubChatService{}
	app := newTestApp(stub, 5000)

	status, body := postJSON(t, app, "/api/chat/v1/message", dto.SendChatRequest{Message: "Hello"})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["pending"])
	assert.NotEmpty(t, body["temp_message_id"])
	assert.Equal(t, constant.PendingAckMessage, body["message"])
}

func TestSendMessageRejectsBadConversationWith404(t *testing.T) {
	stub := &stubChatService{
		queueErr: &service.ConversationAccessError{ConversationID: uuid.NewString()},
	}
	app := newTestApp(stub, 5000)

	conversationId := uuid.New()
	status, _ := postJSON(t, app, "/api/chat/v1/message", dto.SendChatRequest{
		Message:        "Hello",
		ConversationId: &conversationId,
	})

	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSendMessageRejectsOversizedMessage(t *testing.T) {
	stub := &stubChatService{}
	app := newTestApp(stub, 10)

	status, _ := postJSON(t, app, "/api/chat/v1/message", dto.SendChatRequest{
		Message: strings.Repeat("x", 11),
	})

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	// Rejected at the boundary: the service never saw it.
	assert.Zero(t, stub.queueCalls)
}

func TestSendMessageSyncMapsFailureTo500(t *testing.T) {
	stub := &stubChatService{
		syncRes: &dto.SendChatSyncResponse{Success: false, Error: constant.ErrMsgGeneration},
		syncErr: assert.AnError,
	}
	app := newTestApp(stub, 5000)

	status, body := postJSON(t, app, "/api/chat/v1/message/sync", dto.SendChatRequest{Message: "Hello"})

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, constant.ErrMsgGeneration, body["error"])
}
