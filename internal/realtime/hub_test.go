package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case msg := <-c.send:
		var f frame
		require.NoError(t, json.Unmarshal(msg, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	return frame{}
}

func TestRoomsFor(t *testing.T) {
	require.Equal(t, []string{"u1", "role:business", "business:u1"}, RoomsFor(&models.User{ID: "u1", Role: models.RoleBusiness}))
	require.Equal(t, []string{"a1", AdminRoom}, RoomsFor(&models.User{ID: "a1", Admin: true}))
}

func TestEmitDeliversToRoomMembers(t *testing.T) {
	h := NewHub()
	a := NewClient(h, nil, "a", models.RoleVA)
	b := NewClient(h, nil, "b", models.RoleBusiness)
	h.Register(a, "a", RoleRoom(models.RoleVA))
	h.Register(b, "b", BusinessRoom("b"))

	before := testutil.ToFloat64(metrics.RealtimeEvents.WithLabelValues(EventEngagementSummary))
	h.Emit(BusinessRoom("b"), EngagementSummaryEvent("b"), map[string]int{"total": 3})
	f := receive(t, b)
	require.Equal(t, "engagements:summary:update:b", f.Event)
	require.JSONEq(t, `{"total":3}`, string(f.Data))
	require.Len(t, a.send, 0)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.RealtimeEvents.WithLabelValues(EventEngagementSummary)))

	h.Unregister(a)
	require.Zero(t, h.RoomSize("a"))
	require.Zero(t, h.Deliver(Envelope{Room: "a", Event: "x"}))
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub()
	c := NewClient(h, nil, "slow", "")
	h.Register(c, "slow")
	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, h.Deliver(Envelope{Room: "slow", Event: "tick"}))
	}
	require.Equal(t, 0, h.Deliver(Envelope{Room: "slow", Event: "tick"}))
	require.Zero(t, h.RoomSize("slow"))
}

type participants map[string]bool

func (p participants) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	if conversationID == "boom" {
		return false, errors.New("db down")
	}
	return p[conversationID+"/"+userID], nil
}

func TestClientFrames(t *testing.T) {
	h := NewHub()
	h.SetConversationAuthorizer(participants{"c1/u1": true})
	c := NewClient(h, nil, "u1", models.RoleVA)
	h.Register(c, "u1")
	ctx := context.Background()

	c.handle(ctx, []byte(`{"event":"ping"}`))
	require.Equal(t, EventPong, receive(t, c).Event)

	c.handle(ctx, []byte(`{"event":"join_conversation","data":{"conversationId":"c2"}}`))
	require.Equal(t, EventError, receive(t, c).Event)
	require.Zero(t, h.RoomSize(ConversationRoom("c2")))

	c.handle(ctx, []byte(`{"event":"join_conversation","data":{"conversationId":"c1"}}`))
	require.Equal(t, EventJoinedConversation, receive(t, c).Event)
	require.Equal(t, 1, h.RoomSize(ConversationRoom("c1")))

	c.handle(ctx, []byte(`{"event":"leave_conversation","data":{"conversationId":"c1"}}`))
	require.Zero(t, h.RoomSize(ConversationRoom("c1")))

	c.handle(ctx, []byte(`not json`))
	require.Equal(t, EventError, receive(t, c).Event)
}

func TestRedisBrokerFanOut(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// two hubs stand in for two API instances sharing one Redis
	h1, h2 := NewHub(), NewHub()
	b1 := NewRedisBroker(client, "", h1)
	b2 := NewRedisBroker(client, "", h2)
	require.NoError(t, b1.Start(ctx))
	require.NoError(t, b2.Start(ctx))
	h1.UseBroker(b1)
	h2.UseBroker(b2)

	c := NewClient(h2, nil, "u9", "")
	h2.Register(c, "u9")

	h1.Emit("u9", EventNotification, map[string]string{"id": "n1"})
	f := receive(t, c)
	require.Equal(t, EventNotification, f.Event)
	require.JSONEq(t, `{"id":"n1"}`, string(f.Data))
}
