package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/realty-be/internal/models"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishListingByTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	global := NewClient(hub, nil, GlobalTopic)
	lisbon := NewClient(hub, nil, CityTopic("Lisbon"))
	porto := NewClient(hub, nil, CityTopic("Porto"))
	for _, c := range []*Client{global, lisbon, porto} {
		hub.Register <- c
	}

	hub.PublishListing(ActionPropertyCreated, models.Property{ID: 7, City: " LISBON "})

	msg := receive(t, global)
	assert.Equal(t, ActionPropertyCreated, msg.Action)
	msg = receive(t, lisbon)
	assert.Equal(t, ActionPropertyCreated, msg.Action)
	assertSilent(t, porto)
}

func TestHub_SubscribeMovesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient(hub, nil, GlobalTopic)
	hub.Register <- c
	hub.Subscribe(c, CityTopic("Faro"))

	hub.Publish(CityTopic("Faro"), Encode(ActionPropertyDeleted, map[string]int{"id": 1}))
	assert.Equal(t, ActionPropertyDeleted, receive(t, c).Action)

	hub.Publish(GlobalTopic, Encode(ActionPropertyCreated, nil))
	assertSilent(t, c)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient(hub, nil, GlobalTopic)
	hub.Register <- c
	hub.Unregister <- c

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	c := NewClient(hub, nil, GlobalTopic)
	assert.False(t, hub.Join(c))
	hub.Leave(c)
	hub.Subscribe(c, GlobalTopic)
	hub.SendTo(c, Encode(ActionPong, nil))
}

func TestHub_SendToDeliversToOneClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	a := NewClient(hub, nil, GlobalTopic)
	b := NewClient(hub, nil, GlobalTopic)
	require.True(t, hub.Join(a))
	require.True(t, hub.Join(b))

	hub.SendTo(a, Encode(ActionPong, nil))
	assert.Equal(t, ActionPong, receive(t, a).Action)
	assertSilent(t, b)
}

func TestHub_SendToAfterLeaveIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient(hub, nil, GlobalTopic)
	require.True(t, hub.Join(c))
	hub.Leave(c)

	assert.NotPanics(t, func() { hub.SendTo(c, Encode(ActionPong, nil)) })
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_RepliesRacingLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	for i := 0; i < 20; i++ {
		c := NewClient(hub, nil, GlobalTopic)
		require.True(t, hub.Join(c))

		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for range c.Send {
			}
		}()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				hub.Subscribe(c, CityTopic("Braga"))
				hub.SendTo(c, Encode(ActionSubscribed, nil))
			}
		}()
		go func() {
			defer wg.Done()
			hub.Leave(c)
		}()
		wg.Wait()

		select {
		case <-drained:
		case <-time.After(time.Second):
			t.Fatal("send channel not closed")
		}
	}
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("boom"), &msg))
	assert.Equal(t, ActionError, msg.Action)
	assert.Equal(t, map[string]interface{}{"error": "boom"}, msg.Payload)
}
