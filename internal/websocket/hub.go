package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel carries escalations between instances
const RedisChannel = "chatbot_escalations"

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Hub fans escalation events out to connected operator consoles. With Redis
// configured every instance relays what it publishes, so an operator
// connected anywhere sees every escalation exactly once.
type Hub struct {
	instanceID string

	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		instanceID: uuid.NewString(),
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		logger:     log,
	}
}

// Run serves registrations until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Operator connected", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
		h.logger.Info("Hub", "Operator disconnected", map[string]interface{}{"client_id": client.ID})
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Count returns the number of local operator connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers the event to local operators and relays it to the cluster
func (h *Hub) Broadcast(event events.Event) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "escalation",
		"data": event,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode escalation", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instanceID, Message: data})
		if err := h.rdb.Publish(context.Background(), RedisChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis relay failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(data []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Operator send buffer full, dropping connection", map[string]interface{}{"client_id": client.ID})
		h.remove(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.Message)
		}
	}
}
