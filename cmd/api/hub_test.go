package main

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeSender records every event pushed to it. It can be told to fail so
// tests can emulate a broken connection.
type fakeSender struct {
	mu     sync.Mutex
	events []outEvent
	fail   bool
}

func (f *fakeSender) SendEvent(evt outEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send fail")
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeSender) eventsOfType(eventType string) []outEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestHub() *PresenceHub {
	return NewPresenceHub(logs.GetLoggerFromLevel(slog.LevelError))
}

func TestHub_OnlineIffConnectionsExist(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	req.False(hub.IsOnline("alice"))
	req.Empty(hub.Snapshot())

	a := &fakeSender{}
	hub.Register("alice", "c1", a)
	req.True(hub.IsOnline("alice"))
	req.Equal([]string{"alice"}, hub.Snapshot())

	hub.Unregister("alice", "c1")
	req.False(hub.IsOnline("alice"))
	req.Empty(hub.Snapshot())

	// duplicate disconnect signal is a no-op, not an error
	hub.Unregister("alice", "c1")
	req.False(hub.IsOnline("alice"))
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	a := &fakeSender{}
	hub.Register("alice", "c1", a)
	hub.Register("alice", "c1", a)

	req.Equal(map[string]int{"alice": 1}, hub.ConnectionCounts())

	// one unregister is enough to take the user offline
	hub.Unregister("alice", "c1")
	req.False(hub.IsOnline("alice"))
}

func TestHub_TwoDevices(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	observer := &fakeSender{}
	hub.Attach("obs", observer)

	c1 := &fakeSender{}
	c2 := &fakeSender{}
	hub.Register("u", "c1", c1)
	hub.Register("u", "c2", c2)

	// only the first connection flips status, so only one online broadcast
	req.Len(observer.eventsOfType(evtOnlineUsers), 1)

	hub.Unregister("u", "c1")
	req.True(hub.IsOnline("u"), "second device keeps user online")
	req.Len(observer.eventsOfType(evtOnlineUsers), 1, "no broadcast while still online")

	hub.Unregister("u", "c2")
	req.False(hub.IsOnline("u"))

	broadcasts := observer.eventsOfType(evtOnlineUsers)
	req.Len(broadcasts, 2, "exactly one offline broadcast")
	req.Empty(broadcasts[1].Payload, "offline broadcast reflects the user's absence")
}

func TestHub_SendToUserFansOutToAllConnections(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	c1 := &fakeSender{}
	c2 := &fakeSender{}
	hub.Register("alice", "c1", c1)
	hub.Register("alice", "c2", c2)

	evt := deleteMessageEvent("m1")
	req.NoError(hub.SendToUser("alice", evt))

	req.Len(c1.eventsOfType(evtDeleteMessage), 1)
	req.Len(c2.eventsOfType(evtDeleteMessage), 1)
}

func TestHub_SendToOfflineUserFails(t *testing.T) {
	hub := newTestHub()
	if err := hub.SendToUser("ghost", deleteMessageEvent("m1")); err == nil {
		t.Fatal("expected error for offline user")
	}
}

func TestHub_BrokenConnectionIsUnregistered(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	healthy := &fakeSender{}
	broken := &fakeSender{fail: true}
	hub.Register("alice", "ok", healthy)
	hub.Register("alice", "bad", broken)

	err := hub.SendToUser("alice", deleteMessageEvent("m1"))
	req.Error(err, "first failure is reported")
	req.Len(healthy.eventsOfType(evtDeleteMessage), 1, "healthy connection still delivered")

	req.Equal(map[string]int{"alice": 1}, hub.ConnectionCounts(), "broken connection removed")
	req.NoError(hub.SendToUser("alice", deleteMessageEvent("m2")))
}

func TestHub_BroadcastReachesUnidentifiedSessions(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()

	lurker := &fakeSender{}
	hub.Attach("lurker", lurker)

	bound := &fakeSender{}
	hub.Attach("c1", bound)
	hub.Register("alice", "c1", bound)

	events := lurker.eventsOfType(evtOnlineUsers)
	req.Len(events, 1)
	req.Equal([]string{"alice"}, events[0].Payload)

	hub.Detach("lurker")
	hub.Unregister("alice", "c1")
	req.Len(lurker.eventsOfType(evtOnlineUsers), 1, "detached session no longer receives broadcasts")
}
