package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client without a live connection; the pumps are not
// started so messages accumulate in the send channel.
func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		username:  "tester",
		send:      make(chan []byte, 64),
	}
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub client count never reached %d (have %d)", want, hub.GetClientCount())
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, "sess-1")
	hub.Register(client)
	waitForClientCount(t, hub, 1)

	assert.True(t, hub.IsSessionConnected("sess-1"))
	assert.Equal(t, []string{"sess-1"}, hub.GetConnectedSessions())

	hub.Unregister(client)
	waitForClientCount(t, hub, 0)
	assert.False(t, hub.IsSessionConnected("sess-1"))

	// The hub closes the send channel on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_ReconnectReplacesOldConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, "sess-1")
	hub.Register(first)
	waitForClientCount(t, hub, 1)

	second := newTestClient(hub, "sess-1")
	hub.Register(second)

	// The replaced connection's channel is closed.
	select {
	case _, open := <-first.send:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("old client's send channel was not closed")
	}

	assert.Equal(t, 1, hub.GetClientCount())

	// A stale unregister from the old connection must not evict the new one.
	hub.Unregister(first)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, hub.IsSessionConnected("sess-1"))
}

func TestHub_SendToSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "sess-alice")
	bob := newTestClient(hub, "sess-bob")
	hub.Register(alice)
	hub.Register(bob)
	waitForClientCount(t, hub, 2)

	hub.SendToSession("sess-alice", Message{
		Type:      "auth_state_changed",
		SessionID: "sess-alice",
		Data:      map[string]bool{"authenticated": true},
	})

	select {
	case data := <-alice.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "auth_state_changed", msg.Type)
		assert.Equal(t, "sess-alice", msg.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("targeted message not delivered")
	}

	// Bob must not receive it.
	select {
	case <-bob.send:
		t.Fatal("message leaked to another session")
	default:
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "sess-alice")
	bob := newTestClient(hub, "sess-bob")
	hub.Register(alice)
	hub.Register(bob)
	waitForClientCount(t, hub, 2)

	hub.Broadcast(Message{Type: "auth_state_changed"})

	for _, client := range []*Client{alice, bob} {
		select {
		case data := <-client.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, "auth_state_changed", msg.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("broadcast not delivered to session %s", client.sessionID)
		}
	}
}

func TestHub_SendToUnknownSessionIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// No broker configured: the message is simply dropped.
	hub.SendToSessionOrBroadcast("no-such-session", Message{Type: "auth_state_changed"})
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHub_BroadcastEvictsSlowClientWithoutBlocking(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// 发送缓冲已满的慢客户端
	slow := newTestClient(hub, "sess-slow")
	slow.send = make(chan []byte, 1)
	slow.send <- []byte(`{"type":"auth_state_changed"}`)

	fast := newTestClient(hub, "sess-fast")
	hub.Register(slow)
	hub.Register(fast)
	waitForClientCount(t, hub, 2)

	// Broadcasting over a full buffer triggers the eviction path; it must
	// run to completion instead of waiting on the hub's lock.
	done := make(chan struct{})
	go func() {
		hub.broadcastToAll(Message{Type: "auth_state_changed"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a client with a full send buffer")
	}

	assert.False(t, hub.IsSessionConnected("sess-slow"))
	assert.True(t, hub.IsSessionConnected("sess-fast"))

	select {
	case data := <-fast.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "auth_state_changed", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered to the healthy client")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := newTestClient(hub, "sess-slow")
	slow.send = make(chan []byte, 1)
	hub.Register(slow)
	waitForClientCount(t, hub, 1)

	// First message fills the buffer, the second overflows and evicts the
	// client.
	hub.SendToSession("sess-slow", Message{Type: "auth_state_changed"})
	hub.SendToSession("sess-slow", Message{Type: "auth_state_changed"})

	assert.False(t, hub.IsSessionConnected("sess-slow"))
}
