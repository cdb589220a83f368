package bootstrap

import (
	"context"
	"log"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm/factory"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Job Queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model Backend
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceKey,
		cfg.Ai.RequestTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Event Bus (NATS)
	var eventPublisher events.ChatEventPublisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v. Lifecycle events disabled.", err)
	} else {
		eventPublisher = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// 5. Redis (cross-instance websocket fanout)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 6. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/chat_ws.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 7. Services
	userCache := memory.NewUserCache()
	publisherService := service.NewPublisherService(cfg.Chat.TurnTopicName, pubSub)
	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		publisherService,
		eventPublisher,
		userCache,
		sysLogger,
		cfg.Chat.SystemPrompt,
		cfg.Chat.TitleMaxLength,
		!cfg.IsProduction(),
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Chat.TurnTopicName,
		chatService,
		eventPublisher,
		sysLogger,
	)
	authService := service.NewAuthService(uowFactory, cfg.App.JwtSecret)

	// 8. Event Relay (NATS -> WebSocket)
	if natsSub != nil {
		relayService := service.NewRelayService(natsSub, wsHub, wsLogger)
		if err := relayService.Start(); err != nil {
			log.Printf("[WARN] Failed to start chat event relay: %v", err)
		}
	}

	// 9. Handlers & Controllers
	wsHandler := handler.NewChatWsHandler(wsHub, wsLogger)

	return &Container{
		AuthController:  controller.NewAuthController(authService),
		ChatController:  controller.NewChatController(chatService, wsHandler, cfg.Chat.MaxMessageLength),
		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
