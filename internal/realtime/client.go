package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID string
	Role   string

	// guarded by hub.mu
	rooms      map[string]struct{}
	registered bool

	closeOnce sync.Once
}

// NewClient wraps conn; conn may be nil for in-process consumers.
func NewClient(hub *Hub, conn *websocket.Conn, userID, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		UserID: userID,
		Role:   role,
		rooms:  map[string]struct{}{},
	}
}

func (c *Client) enqueue(msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// inbound is a client → server frame.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) reply(event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	msg, _ := json.Marshal(frame{Event: event, Data: data})
	c.enqueue(msg)
}

// handle processes one client frame.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.reply(EventError, map[string]string{"error": "invalid frame"})
		return
	}
	switch in.Event {
	case "ping":
		c.reply(EventPong, map[string]int64{"ts": time.Now().UnixMilli()})
	case "join_conversation", "leave_conversation":
		var body struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(in.Data, &body); err != nil || body.ConversationID == "" {
			c.reply(EventError, map[string]string{"error": "conversationId is required"})
			return
		}
		room := ConversationRoom(body.ConversationID)
		if in.Event == "leave_conversation" {
			c.hub.Leave(c, room)
			return
		}
		authz := c.hub.authorizer()
		if authz == nil {
			c.reply(EventError, map[string]string{"error": "conversations unavailable"})
			return
		}
		ok, err := authz.IsParticipant(ctx, body.ConversationID, c.UserID)
		if err != nil || !ok {
			c.reply(EventError, map[string]string{"error": "not a participant"})
			return
		}
		c.hub.Join(c, room)
		c.reply(EventJoinedConversation, body)
	default:
		c.reply(EventError, map[string]string{"error": "unknown event " + in.Event})
	}
}

// Serve registers the connection in rooms and pumps frames until it closes.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID, role string, rooms []string) {
	c := NewClient(h, conn, userID, role)
	h.Register(c, rooms...)
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("realtime: read user=%s: %v", c.UserID, err)
			}
			return
		}
		c.handle(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
