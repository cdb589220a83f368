package service

import (
	"context"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/websocket"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/google/uuid"
)

// IRelayService bridges the event bus to connected websocket
// clients: every chat lifecycle event published to NATS gets pushed
// onto the owning user's channel.
type IRelayService interface {
	Start() error
}

type relayService struct {
	subscriber *pktNats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewRelayService(subscriber *pktNats.Subscriber, hub *websocket.Hub, log logger.ILogger) IRelayService {
	return &relayService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

func (rs *relayService) Start() error {
	return rs.subscriber.Subscribe("events.>", "chat-relay", func(ctx context.Context, env pktNats.Envelope) error {
		userID, err := uuid.Parse(env.UserID)
		if err != nil {
			// Unroutable event. Dropping is the only option.
			rs.logger.Warn("ChatRelay", "Event with invalid user id", map[string]interface{}{
				"user_id": env.UserID,
				"event":   env.Event,
			})
			return nil
		}

		rs.hub.Send(userID, env.Event, env.Data)
		return nil
	})
}
