package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// readDeadline allows a couple of missed pings before the peer is
	// declared dead and the disconnect transition runs.
	readDeadline  = 90 * time.Second
	pingInterval  = 30 * time.Second
	writeTimeout  = 10 * time.Second
	maxFrameSize  = int64(64 << 10)
	sendQueueSize = 32
)

var (
	errSessionClosed  = errors.New("session closed")
	errSendBufferFull = errors.New("session send buffer full")
)

// Session states. A session starts Unbound, becomes Bound on a valid
// identify event and ends Closed. Closed is terminal.
type sessionState int

const (
	stateUnbound sessionState = iota
	stateBound
	stateClosed
)

// Session binds one websocket connection to a user identity and drives the
// presence hub on identify, logout and disconnect. Inbound events are
// processed strictly in receipt order by the read loop; outbound events go
// through a buffered queue drained by the write pump, so a slow reader never
// blocks the hub.
type Session struct {
	id      string
	tokenID string // user id proven by the connection's JWT
	conn    *websocket.Conn
	hub     *PresenceHub
	router  *MessageRouter
	log     *slog.Logger

	// state and boundUser are touched only by the read loop goroutine.
	state     sessionState
	boundUser string

	send      chan outEvent
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, tokenID string, hub *PresenceHub, router *MessageRouter, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		tokenID: tokenID,
		conn:    conn,
		hub:     hub,
		router:  router,
		log:     log.With("conn", id, "user", tokenID),
		send:    make(chan outEvent, sendQueueSize),
		done:    make(chan struct{}),
	}
}

// SendEvent queues an event for delivery. It never blocks: a closed session
// or a full queue is an error the hub uses to drop the connection.
func (s *Session) SendEvent(evt outEvent) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- evt:
		return nil
	case <-s.done:
		return errSessionClosed
	default:
		return errSendBufferFull
	}
}

// run starts the write pump and processes inbound events until the transport
// drops. It returns once the session is fully torn down.
func (s *Session) run() {
	s.hub.Attach(s.id, s)
	go s.writePump()
	s.readLoop()
	s.teardown()
}

// teardown runs the disconnect transition exactly once: the session leaves
// the broadcast set, gives up its presence registration if it was still
// bound, and ends Closed.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.Detach(s.id)
		if s.state == stateBound {
			s.hub.Unregister(s.boundUser, s.id)
		}
		s.state = stateClosed
		s.conn.Close()
		s.log.Info("session closed")
	})
}

func (s *Session) readLoop() {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		var env envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read failed", "error", err)
			}
			return
		}
		s.dispatch(env)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case evt := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(evt); err != nil {
				s.log.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeTimeout))
			return
		}
	}
}

// dispatch handles one inbound event. Per-session events are processed in
// receipt order because only the read loop calls this. Malformed or
// out-of-order events are logged and dropped — they never terminate the
// connection or disturb other users' presence state.
func (s *Session) dispatch(env envelope) {
	if s.state == stateClosed {
		s.log.Warn("event after logout ignored", "type", env.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch env.Type {
	case evtIdentify:
		s.handleIdentify(env.Payload)

	case evtSendMessage:
		if !s.requireBound(env.Type) {
			return
		}
		var p sendMessagePayload
		if !s.decode(env, &p) {
			return
		}
		if _, err := s.router.Send(ctx, s.boundUser, p.ReceiverID, p.Text, p.Image); err != nil {
			s.log.Warn("send_message dropped", "receiver", p.ReceiverID, "error", err)
		}

	case evtDeleteMessage:
		if !s.requireBound(env.Type) {
			return
		}
		var p deleteMessagePayload
		if !s.decode(env, &p) {
			return
		}
		if err := s.router.Delete(ctx, s.boundUser, p.MessageID); err != nil {
			s.log.Warn("delete_message dropped", "message", p.MessageID, "error", err)
		}

	case evtMarkSeen:
		if !s.requireBound(env.Type) {
			return
		}
		var p markSeenPayload
		if !s.decode(env, &p) {
			return
		}
		// The receiver side of the direction is always this session's
		// user: a client can only mark messages sent to itself as seen.
		if _, err := s.router.MarkSeen(ctx, p.SenderID, s.boundUser); err != nil {
			s.log.Warn("mark_seen dropped", "sender", p.SenderID, "error", err)
		}

	case evtLogout:
		s.handleLogoutEvent()

	default:
		s.log.Warn("unknown event ignored", "type", env.Type)
	}
}

// handleIdentify runs the Unbound→Bound transition. The claimed user id must
// match the identity proven by the connection's token; a second identify on
// an already bound session is a protocol violation and is ignored, the
// session keeps its first identity.
func (s *Session) handleIdentify(payload json.RawMessage) {
	if s.state == stateBound {
		s.log.Warn("duplicate identify ignored")
		return
	}

	var p identifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.log.Warn("bad identify payload ignored", "error", err)
		return
	}
	if p.UserID != s.tokenID {
		s.log.Warn("identify for foreign user ignored", "claimed", p.UserID)
		return
	}

	s.boundUser = p.UserID
	s.state = stateBound
	s.hub.Register(s.boundUser, s.id, s)
	s.log.Info("session bound")
}

// handleLogoutEvent runs the Bound→Closed transition without closing the
// transport: the client stays connected but is gone from presence.
func (s *Session) handleLogoutEvent() {
	if s.state != stateBound {
		s.log.Warn("logout while unbound ignored")
		return
	}
	s.hub.Unregister(s.boundUser, s.id)
	s.state = stateClosed
	s.log.Info("session logged out")
}

func (s *Session) requireBound(eventType string) bool {
	if s.state != stateBound {
		s.log.Warn("event before identify ignored", "type", eventType)
		return false
	}
	return true
}

func (s *Session) decode(env envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		s.log.Warn("bad payload ignored", "type", env.Type, "error", err)
		return false
	}
	return true
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The browser client connects cross-origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades an authenticated request to a websocket session. The
// JWT middleware already ran, so the session knows which user the connection
// is allowed to identify as.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, claims.UserID, s.hub, s.router, s.log)
	go sess.run()
}
