package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ai-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Frame is what a connected client receives: the per-user channel
// name, the lifecycle event name, and its payload.
type Frame struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Identifies this instance so it can skip its own fanout messages
	instanceID string

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a lifecycle event frame to every connection the user
// holds on this instance, then fans out via Redis for connections on
// other instances. No delivery happens if the user is not subscribed
// anywhere: events are not durable toward the browser.
func (h *Hub) Send(userID uuid.UUID, event string, payload map[string]interface{}) {
	frame := Frame{
		Channel: fmt.Sprintf("chat.%s", userID),
		Event:   event,
		Data:    payload,
	}
	data, _ := json.Marshal(frame)

	for _, client := range h.deliverLocal(userID, data) {
		// Slow consumer: unregister rather than block the pipeline.
		// The hub closes Send during unregister.
		h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
		h.unregister <- client
	}

	if h.rdb != nil {
		wire := map[string]interface{}{
			"target_user_id": userID.String(),
			"origin":         h.instanceID,
			"message":        json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(wire)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

// deliverLocal pushes a frame to every local connection of the user
// and reports the slow consumers it had to skip. The read lock is
// held across the channel sends: Run only closes a Send channel under
// the write lock, so a held read lock is what makes the sends safe.
func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var slow []*Client
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	return slow
}

func (h *Hub) subscribeToRedis() {
	// Every instance subscribes to "cluster_events"; each message
	// names its target user, and instances deliver only to users they
	// hold locally.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Origin       string          `json:"origin"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}

		// Local delivery already happened on the originating instance
		if payload.Origin == h.instanceID {
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		for _, client := range h.deliverLocal(uid, payload.Message) {
			h.unregister <- client
		}
	}
}
