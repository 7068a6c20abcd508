package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rau/internal/featureflags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_LocalDelivery(t *testing.T) {
	hub := NewHub()
	recipient, err := hub.Register(1, nil)
	require.NoError(t, err)
	actor, err := hub.Register(2, nil)
	require.NoError(t, err)

	d := NewDispatcher(NewNotifier(nil), hub, featureflags.NewManager("live_activity=on"))
	d.Publish(context.Background(), 1, 2, EventPostVoted, map[string]any{"post_id": 9, "score": 3})

	require.Len(t, recipient.Send, 1)
	var ev struct {
		Type    string         `json:"type"`
		ActorID uint           `json:"actor_id"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-recipient.Send, &ev))
	assert.Equal(t, EventPostVoted, ev.Type)
	assert.Equal(t, uint(2), ev.ActorID)
	assert.Equal(t, float64(9), ev.Payload["post_id"])
	assert.Empty(t, actor.Send)
}

func TestDispatcher_Skips(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	t.Run("self", func(t *testing.T) {
		d := NewDispatcher(nil, hub, nil)
		d.Publish(context.Background(), 1, 1, EventPostCommented, nil)
		assert.Empty(t, c.Send)
	})

	t.Run("flag off", func(t *testing.T) {
		d := NewDispatcher(nil, hub, featureflags.NewManager("live_activity=off"))
		d.Publish(context.Background(), 1, 2, EventPostCommented, nil)
		assert.Empty(t, c.Send)
	})

	t.Run("anonymous recipient", func(t *testing.T) {
		d := NewDispatcher(nil, hub, nil)
		d.Publish(context.Background(), 0, 2, EventPostCommented, nil)
		assert.Empty(t, c.Send)
	})

	t.Run("nil dispatcher", func(t *testing.T) {
		var d *Dispatcher
		assert.NotPanics(t, func() { d.Publish(context.Background(), 1, 2, EventPostVoted, nil) })
	})
}

func TestDispatcher_ThroughRedis(t *testing.T) {
	rdb := setupRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	d := NewDispatcher(n, hub, nil)
	d.Publish(context.Background(), 5, 6, EventCommentReplied, map[string]uint{"comment_id": 3})

	select {
	case msg := <-c.Send:
		assert.Contains(t, string(msg), `"type":"comment_replied"`)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered through redis")
	}
}
