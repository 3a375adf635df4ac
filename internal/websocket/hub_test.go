package websocket

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil, logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "ws.log")))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func newClient(hub *Hub, buf int) *Client {
	return &Client{ID: uuid.New(), Hub: hub, Send: make(chan []byte, buf)}
}

func TestHub_BroadcastToOperators(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	a, b := newClient(hub, 4), newClient(hub, 4)
	require.True(t, hub.join(a))
	require.True(t, hub.join(b))
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(events.New(events.TypeEscalationRaised, map[string]interface{}{"stage": "emergency"}))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			var got struct {
				Type string           `json:"type"`
				Data events.BaseEvent `json:"data"`
			}
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, "escalation", got.Type)
			assert.Equal(t, events.TypeEscalationRaised, got.Data.Type)
		case <-time.After(time.Second):
			t.Fatal("operator did not receive escalation")
		}
	}
}

func TestHub_DropsSlowOperator(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	slow := newClient(hub, 0)
	require.True(t, hub.join(slow))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(events.New(events.TypeEscalationRaised, nil))

	assert.Equal(t, 0, hub.Count())
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHub_LeaveAndShutdown(t *testing.T) {
	hub, cancel := newTestHub(t)

	c := newClient(hub, 1)
	require.True(t, hub.join(c))
	hub.leave(c)
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// neither call may block once the hub is gone
	assert.False(t, hub.join(newClient(hub, 1)))
	hub.leave(c)
}
