package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishRouting(t *testing.T) {
	hub, _ := startHub(t)

	global := NewClient(hub, nil, "", "u1")
	pie := NewClient(hub, nil, "pie", "u2")
	cake := NewClient(hub, nil, "cake", "u3")
	for _, c := range []*Client{global, pie, cake} {
		require.True(t, hub.Register(c))
	}

	hub.Publish("pie", []byte("pie-event"))
	assert.Equal(t, "pie-event", string(receive(t, global)))
	assert.Equal(t, "pie-event", string(receive(t, pie)))
	assertSilent(t, cake)

	hub.Publish("", []byte("account-event"))
	assert.Equal(t, "account-event", string(receive(t, global)))
	assertSilent(t, pie)
}

func TestPrivilegedPublishSkipsOtherClients(t *testing.T) {
	hub, _ := startHub(t)

	plain := NewClient(hub, nil, "", "seller")
	scoped := NewClient(hub, nil, "pie", "seller")
	privileged := NewClient(hub, nil, "pie", "customer")
	privileged.Privileged = true
	for _, c := range []*Client{plain, scoped, privileged} {
		require.True(t, hub.Register(c))
	}

	hub.PublishPrivileged("pie", []byte("rating-event"))
	hub.Publish("pie", []byte("recipe-event"))

	assert.Equal(t, "rating-event", string(receive(t, privileged)))
	assert.Equal(t, "recipe-event", string(receive(t, privileged)))
	// Queue order is preserved, so the first message seen is the public one.
	assert.Equal(t, "recipe-event", string(receive(t, plain)))
	assert.Equal(t, "recipe-event", string(receive(t, scoped)))
}

func TestReplyTargetsSingleClient(t *testing.T) {
	hub, _ := startHub(t)
	a := NewClient(hub, nil, "", "a")
	b := NewClient(hub, nil, "", "b")
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	a.Reply(NewErrorMessage("Unknown action: dance"))

	var msg Message
	require.NoError(t, json.Unmarshal(receive(t, a), &msg))
	assert.Equal(t, "error", msg.Action)
	assertSilent(t, b)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := NewClient(hub, nil, "pie", "u1")
	require.True(t, hub.Register(c))

	hub.Unregister(c)
	_, ok := <-c.Send
	assert.False(t, ok)

	// Unregistering twice is harmless.
	hub.Unregister(c)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)
	slow := NewClient(hub, nil, "", "u1")
	require.True(t, hub.Register(slow))

	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish("", []byte("x"))
	}

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-slow.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow client was not dropped")
		}
	}
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	c := NewClient(hub, nil, "", "u1")
	require.True(t, hub.Register(c))
	cancel()

	_, ok := <-c.Send
	assert.False(t, ok)

	hub.Publish("", []byte("late"))
	assert.False(t, hub.Register(NewClient(hub, nil, "", "u2")))
}
