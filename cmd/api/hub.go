package main

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// eventSender is the minimal interface the hub needs from a session: the
// ability to push an outbound event to the connected client.
type eventSender interface {
	SendEvent(evt outEvent) error
}

// PresenceHub tracks every live websocket session and which user each one is
// bound to. A user is online iff it has at least one bound connection; when a
// register or unregister flips that status, the hub pushes the fresh
// online-user snapshot to every connected session.
type PresenceHub struct {
	log *slog.Logger

	mu sync.RWMutex
	// conns maps a user id to its bound connections. Entries with an empty
	// connection set are removed, never kept around.
	conns map[string]map[string]eventSender
	// sessions holds every attached session, bound or not. Presence
	// broadcasts go to all of them.
	sessions map[string]eventSender
}

// NewPresenceHub creates a new hub instance.
func NewPresenceHub(log *slog.Logger) *PresenceHub {
	return &PresenceHub{
		log:      log,
		conns:    make(map[string]map[string]eventSender),
		sessions: make(map[string]eventSender),
	}
}

// Attach records a newly accepted session so it receives presence broadcasts
// even before it identifies.
func (h *PresenceHub) Attach(connID string, s eventSender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[connID] = s
}

// Detach removes a session from the broadcast set. Safe to call for a
// session that was never attached.
func (h *PresenceHub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, connID)
}

// Register binds a connection to a user and reports whether the user just
// came online. Registering the same (user, connection) pair twice leaves the
// connection set unchanged. When the user's status flips, the hub broadcasts
// the new snapshot to all sessions.
func (h *PresenceHub) Register(userID, connID string, s eventSender) bool {
	h.mu.Lock()
	set, existed := h.conns[userID]
	if !existed {
		set = make(map[string]eventSender)
		h.conns[userID] = set
	}
	set[connID] = s
	cameOnline := !existed
	h.mu.Unlock()

	if cameOnline {
		h.BroadcastOnlineUsers()
	}
	return cameOnline
}

// Unregister removes a connection from a user's set and reports whether the
// user just went offline. Duplicate disconnect signals for the same pair are
// a no-op. When the last connection goes, the user entry is removed and the
// snapshot is broadcast.
func (h *PresenceHub) Unregister(userID, connID string) bool {
	h.mu.Lock()
	wentOffline := false
	if set, ok := h.conns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.conns, userID)
			wentOffline = true
		}
	}
	h.mu.Unlock()

	if wentOffline {
		h.BroadcastOnlineUsers()
	}
	return wentOffline
}

// IsOnline reports whether the user has at least one bound connection.
func (h *PresenceHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// Snapshot returns the ids of all currently online users, sorted for
// deterministic payloads.
func (h *PresenceHub) Snapshot() []string {
	h.mu.RLock()
	ids := lo.Keys(h.conns)
	h.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// ConnectionCounts reports how many live connections each online user has.
// Used by the debug endpoint.
func (h *PresenceHub) ConnectionCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.conns))
	for userID, set := range h.conns {
		counts[userID] = len(set)
	}
	return counts
}

// SendToUser delivers an event to every bound connection of one user. It is
// best-effort: every connection is attempted, connections whose send fails
// are unregistered so stale sessions do not pile up, and the first error is
// returned. An offline user is an error the caller may ignore.
func (h *PresenceHub) SendToUser(userID string, evt outEvent) error {
	h.mu.RLock()
	set := h.conns[userID]
	targets := make(map[string]eventSender, len(set))
	for id, s := range set {
		targets[id] = s
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}

	var firstErr error
	var failedIDs []string
	for id, s := range targets {
		if err := s.SendEvent(evt); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
		}
	}

	for _, id := range failedIDs {
		h.Unregister(userID, id)
	}
	return firstErr
}

// BroadcastOnlineUsers pushes the current snapshot to every attached
// session, identified or not. Send failures are logged and skipped; the
// failing session will tear itself down through its own read loop.
func (h *PresenceHub) BroadcastOnlineUsers() {
	snapshot := h.Snapshot()

	h.mu.RLock()
	targets := make([]eventSender, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	evt := onlineUsersEvent(snapshot)
	for _, s := range targets {
		if err := s.SendEvent(evt); err != nil {
			h.log.Debug("presence broadcast dropped", "error", err)
		}
	}
}
