package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
)

// Envelope is an event addressed to a room. It is the unit published between instances.
type Envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// frame is what a client receives.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Broker fans envelopes out to every API instance.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
}

// ConversationAuthorizer decides whether a user may join a conversation room.
type ConversationAuthorizer interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// Hub tracks local connections by room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	broker Broker
	authz  ConversationAuthorizer
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[*Client]struct{}{}}
}

// UseBroker routes Emit through b; b must call Deliver on every instance.
func (h *Hub) UseBroker(b Broker) {
	h.mu.Lock()
	h.broker = b
	h.mu.Unlock()
}

// SetConversationAuthorizer enables join_conversation frames.
func (h *Hub) SetConversationAuthorizer(a ConversationAuthorizer) {
	h.mu.Lock()
	h.authz = a
	h.mu.Unlock()
}

// Emit sends event to room, through the broker when one is configured.
func (h *Hub) Emit(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("realtime: encode %s: %v", event, err)
		return
	}
	env := Envelope{Room: room, Event: event, Data: data}
	h.mu.RLock()
	b := h.broker
	h.mu.RUnlock()
	if b != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := b.Publish(ctx, env)
		if err == nil {
			return
		}
		logger.Warnf("realtime: publish %s failed, delivering locally: %v", event, err)
	}
	h.Deliver(env)
}

// metricLabel strips per-entity suffixes so the event label stays bounded.
func metricLabel(event string) string {
	if strings.HasPrefix(event, EventEngagementSummary) {
		return EventEngagementSummary
	}
	return event
}

// Deliver writes env to the local connections in its room and returns how many got it.
// Clients whose send buffer is full are disconnected.
func (h *Hub) Deliver(env Envelope) int {
	msg, err := json.Marshal(frame{Event: env.Event, Data: env.Data})
	if err != nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[env.Room]))
	for c := range h.rooms[env.Room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			delivered++
			continue
		}
		logger.Warnf("realtime: dropping slow client user=%s", c.UserID)
		h.Unregister(c)
	}
	if delivered > 0 {
		metrics.RealtimeEvents.WithLabelValues(metricLabel(env.Event)).Add(float64(delivered))
	}
	return delivered
}

// Register adds c to rooms.
func (h *Hub) Register(c *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !c.registered {
		c.registered = true
		metrics.RealtimeConnections.Inc()
	}
	for _, r := range rooms {
		h.join(c, r)
	}
}

func (h *Hub) join(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = map[*Client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	h.join(c, room)
	h.mu.Unlock()
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, room)
}

func (h *Hub) leave(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Unregister removes c from every room and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for r := range c.rooms {
		h.leave(c, r)
	}
	wasRegistered := c.registered
	c.registered = false
	h.mu.Unlock()
	if wasRegistered {
		metrics.RealtimeConnections.Dec()
	}
	c.close()
}

// RoomSize returns the number of local connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) authorizer() ConversationAuthorizer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.authz
}
