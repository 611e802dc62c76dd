package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60

	// EventItemAdded is emitted when an item is added to a wall.
	EventItemAdded = "item_added"

	// SubscribeTimeout bounds the Redis subscribe round trip for a wall.
	SubscribeTimeout = 5 * time.Second
)

var watchers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "feedr_ws_connections",
	Help: "Open live wall connections",
})

// RedisPublisher publishes wall events for cross-instance broadcast.
type RedisPublisher interface {
	PublishWallEvent(wallID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to wall channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeWall(ctx context.Context, wallID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains wall_id -> set of connections and broadcasts messages.
// With Redis configured, events go through pub/sub so every instance delivers them once.
type Hub struct {
	walls    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per wall
	pending  map[uuid.UUID]bool   // subscription in flight
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		walls:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		pending:  make(map[uuid.UUID]bool),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a wall room. Starts the Redis subscription for the wall on its first client.
// The subscribe round trip runs outside the hub lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.walls[c.WallID] == nil {
		h.walls[c.WallID] = make(map[string]*Client)
	}
	h.walls[c.WallID][c.ID] = c
	subscribe := h.redisSub != nil && h.subs[c.WallID] == nil && !h.pending[c.WallID]
	if subscribe {
		h.pending[c.WallID] = true
	}
	h.mu.Unlock()
	watchers.Inc()
	h.logger.Debug("client joined wall", zap.String("client_id", c.ID), zap.String("wall_id", c.WallID.String()))

	if subscribe {
		h.subscribe(c.WallID)
	}
}

func (h *Hub) subscribe(wallID uuid.UUID) {
	ctx, cancelCtx := context.WithTimeout(context.Background(), SubscribeTimeout)
	defer cancelCtx()
	cancel, err := h.redisSub.SubscribeWall(ctx, wallID, func(event string, payload []byte) {
		h.BroadcastToWall(wallID, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, wallID)
	if err != nil {
		h.logger.Warn("wall subscription failed", zap.String("wall_id", wallID.String()), zap.Error(err))
		return
	}
	if len(h.walls[wallID]) == 0 || h.subs[wallID] != nil {
		// the room emptied while subscribing
		cancel()
		return
	}
	h.subs[wallID] = cancel
}

// Unregister removes a client from its wall room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.walls[c.WallID]
	if ok {
		if _, present := m[c.ID]; !present {
			h.mu.Unlock()
			return
		}
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.walls, c.WallID)
			if cancel, ok := h.subs[c.WallID]; ok {
				cancel()
				delete(h.subs, c.WallID)
			}
		}
	}
	h.mu.Unlock()
	if ok {
		watchers.Dec()
	}
	h.logger.Debug("client left wall", zap.String("client_id", c.ID), zap.String("wall_id", c.WallID.String()))
}

// BroadcastToWall sends a message to all local clients of a wall.
func (h *Hub) BroadcastToWall(wallID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.walls[wallID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishItem announces a new item. With Redis it only publishes, and the subscription
// callback delivers to local clients, so each client receives the event once.
func (h *Hub) PublishItem(wallID uuid.UUID, item models.PublicItem) {
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishWallEvent(wallID, EventItemAdded, data); err != nil {
			h.logger.Warn("publish wall event failed", zap.String("wall_id", wallID.String()), zap.Error(err))
			h.BroadcastToWall(wallID, EventItemAdded, json.RawMessage(data))
		}
		return
	}
	h.BroadcastToWall(wallID, EventItemAdded, json.RawMessage(data))
}

// WatcherCount returns the number of local clients watching a wall.
func (h *Hub) WatcherCount(wallID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.walls[wallID])
}
