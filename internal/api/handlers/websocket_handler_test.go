package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	ws "github.com/isdelr/realty-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHandler_SubscribeReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub()
	go hub.Run(ctx)
	h := NewWebSocketHandler(hub, []string{"*"})

	client := ws.NewClient(hub, nil, ws.GlobalTopic)
	require.True(t, hub.Join(client))

	h.handleIncomingWSMessage(client, []byte(`{"action":"subscribe","payload":{"city":"Porto"}}`))

	select {
	case data := <-client.Send:
		var msg ws.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, ws.ActionSubscribed, msg.Action)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestWebSocketHandler_ReplyAfterLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub()
	go hub.Run(ctx)
	h := NewWebSocketHandler(hub, []string{"*"})

	client := ws.NewClient(hub, nil, ws.GlobalTopic)
	require.True(t, hub.Join(client))
	hub.Leave(client)

	assert.NotPanics(t, func() {
		h.handleIncomingWSMessage(client, []byte(`{"action":"ping"}`))
		h.handleIncomingWSMessage(client, []byte(`not json`))
	})
	_, ok := <-client.Send
	assert.False(t, ok)
}
