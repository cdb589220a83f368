package controller

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	SendMessageSync(ctx *fiber.Ctx) error
	GetConversations(ctx *fiber.Ctx) error
	GetConversationMessages(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService      service.IChatService
	wsHandler        *handler.ChatWsHandler
	maxMessageLength int
}

func NewChatController(chatService service.IChatService, wsHandler *handler.ChatWsHandler, maxMessageLength int) IChatController {
	if maxMessageLength <= 0 {
		maxMessageLength = 5000
	}
	return &chatController{
		chatService:      chatService,
		wsHandler:        wsHandler,
		maxMessageLength: maxMessageLength,
	}
}

// parseTurnRequest validates the shared body of both message
// endpoints, including the configured message length cap.
func (c *chatController) parseTurnRequest(ctx *fiber.Ctx) (*dto.SendChatRequest, error) {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Message) > c.maxMessageLength {
		return nil, &serverutils.ValidationError{
			Fields: []string{fmt.Sprintf("message must be at most %d characters", c.maxMessageLength)},
		}
	}
	return &req, nil
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")

	// Message endpoints accept guests; history endpoints require auth.
	h.Post("message", serverutils.OptionalJwtMiddleware, c.SendMessage)
	h.Post("message/sync", serverutils.OptionalJwtMiddleware, c.SendMessageSync)
	h.Get("conversations", serverutils.JwtMiddleware, c.GetConversations)
	h.Get("conversations/:id/messages", serverutils.JwtMiddleware, c.GetConversationMessages)
	h.Get("ws", c.wsHandler.ServeWs)
}

// SendMessage enqueues an asynchronous turn and acks immediately.
// The answer arrives as lifecycle events on the user's channel.
func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId := serverutils.UserIDFromLocals(ctx)

	req, err := c.parseTurnRequest(ctx)
	if err != nil {
		return err
	}

	ack, err := c.chatService.QueueChat(ctx.Context(), userId, req)
	if err != nil {
		var accessErr *service.ConversationAccessError
		if errors.As(err, &accessErr) {
			return fiber.NewError(fiber.StatusNotFound, accessErr.UserMessage())
		}
		return err
	}

	return ctx.JSON(ack)
}

// SendMessageSync runs the turn inline and returns the full response.
func (c *chatController) SendMessageSync(ctx *fiber.Ctx) error {
	userId := serverutils.UserIDFromLocals(ctx)

	req, err := c.parseTurnRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.SendChatSync(ctx.Context(), userId, req)
	if err != nil {
		var accessErr *service.ConversationAccessError
		if errors.As(err, &accessErr) {
			return fiber.NewError(fiber.StatusNotFound, accessErr.UserMessage())
		}
		// res carries the user-safe error message.
		return ctx.Status(fiber.StatusInternalServerError).JSON(res)
	}

	return ctx.JSON(res)
}

func (c *chatController) GetConversations(ctx *fiber.Ctx) error {
	userId := serverutils.UserIDFromLocals(ctx)

	res, err := c.chatService.GetConversations(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversations", res))
}

func (c *chatController) GetConversationMessages(ctx *fiber.Ctx) error {
	userId := serverutils.UserIDFromLocals(ctx)

	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid conversation id")
	}

	res, err := c.chatService.GetConversationMessages(ctx.Context(), userId, conversationId)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation messages", res))
}
