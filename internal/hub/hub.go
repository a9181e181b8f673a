// Package hub tracks live connections and fans session events out to the two
// participants of the session, and only to them. Archival happens off the
// delivery path and its failures never reach the sender.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

// Archiver persists completed messages; called asynchronously.
type Archiver interface {
	Save(ctx context.Context, message *domain.Message) (*domain.Message, error)
}

// Sessions is the registry surface the hub needs.
type Sessions interface {
	Get(id string) (*domain.Session, error)
	Touch(id string)
	Deactivate(id string) error
}

const archiveTimeout = 30 * time.Second

type Hub struct {
	sessions Sessions
	archiver Archiver
	log      *slog.Logger

	mu       sync.Mutex
	conns    map[string]*Connection
	byUser   map[string]map[string]*Connection
	departed map[string]map[string]struct{}
}

func New(sessions Sessions, archiver Archiver, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sessions: sessions,
		archiver: archiver,
		log:      log,
		conns:    make(map[string]*Connection),
		byUser:   make(map[string]map[string]*Connection),
		departed: make(map[string]map[string]struct{}),
	}
}

// Accept registers an upgraded connection for the participant and starts its
// pumps. The returned connection id is unique among live connections.
func (h *Hub) Accept(userID string, conn *websocket.Conn) *Connection {
	c := newConnection(h, userID, conn)

	h.mu.Lock()
	h.conns[c.ID] = c
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]*Connection)
	}
	h.byUser[userID][c.ID] = c
	h.mu.Unlock()

	h.log.Info("connection accepted",
		slog.String("connection_id", c.ID),
		slog.String("user_id", userID),
	)

	c.run()
	return c
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) disconnect(c *Connection) {
	h.mu.Lock()
	_, known := h.conns[c.ID]
	if known {
		delete(h.conns, c.ID)
		if userConns := h.byUser[c.UserID]; userConns != nil {
			delete(userConns, c.ID)
			if len(userConns) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
	}
	h.mu.Unlock()

	// The channel close happens outside h.mu: a deliver that already
	// snapshotted this connection may still call enqueue, which the
	// connection serializes against its own shutdown.
	if known {
		c.shutdown()
		h.log.Info("connection closed", slog.String("connection_id", c.ID))
	}
}

func (h *Hub) handleEvent(c *Connection, event domain.Event) {
	switch event.Type {
	case domain.EventChat:
		h.handleChat(c, event)
	case domain.EventJoin:
		h.handlePresence(c, event, domain.MessageJoined,
			fmt.Sprintf("User %s has joined the chat", event.UserID))
	case domain.EventLeave:
		h.handlePresence(c, event, domain.MessageLeft,
			fmt.Sprintf("User %s has left the chat", event.UserID))
	default:
		h.log.Warn("unknown event type ignored",
			slog.String("type", event.Type),
			slog.String("connection_id", c.ID),
		)
	}
}

func (h *Hub) handleChat(c *Connection, event domain.Event) {
	if event.SessionID == "" || event.UserID == "" || event.Message == "" {
		h.log.Warn("incomplete chat event dropped", slog.String("connection_id", c.ID))
		return
	}

	session, err := h.sessions.Get(event.SessionID)
	if err != nil {
		h.log.Warn("chat event for unknown session dropped",
			slog.String("session_id", event.SessionID),
		)
		return
	}
	if !session.Active || !session.Includes(event.UserID) {
		h.log.Warn("chat event rejected",
			slog.String("session_id", event.SessionID),
			slog.String("user_id", event.UserID),
			slog.Bool("active", session.Active),
		)
		return
	}

	message := domain.NewMessage(session.ID, event.UserID, event.Message, domain.MessageText)

	h.sessions.Touch(session.ID)
	h.archiveAsync(message)
	h.deliver(session, message)
}

func (h *Hub) handlePresence(c *Connection, event domain.Event, kind domain.MessageKind, body string) {
	if event.SessionID == "" || event.UserID == "" {
		h.log.Warn("incomplete presence event dropped", slog.String("connection_id", c.ID))
		return
	}

	session, err := h.sessions.Get(event.SessionID)
	if err != nil {
		h.log.Warn("presence event for unknown session dropped",
			slog.String("session_id", event.SessionID),
		)
		return
	}
	if !session.Includes(event.UserID) {
		h.log.Warn("presence event from non-participant dropped",
			slog.String("session_id", event.SessionID),
			slog.String("user_id", event.UserID),
		)
		return
	}

	message := domain.NewMessage(session.ID, "system", body, kind)

	h.sessions.Touch(session.ID)
	h.archiveAsync(message)
	h.deliver(session, message)

	switch kind {
	case domain.MessageJoined:
		h.markPresent(session.ID, event.UserID)
	case domain.MessageLeft:
		if h.markDepartedAndCheck(session, event.UserID) {
			if err := h.sessions.Deactivate(session.ID); err != nil {
				h.log.Warn("session deactivation failed",
					slog.String("session_id", session.ID),
					sl.Err(err),
				)
			}
		}
	}
}

// deliver sends the message to the connections of the session's two
// participants only. Best-effort per connection: one slow or dead connection
// does not stop delivery to the other participant.
func (h *Hub) deliver(session *domain.Session, message *domain.Message) {
	frame, err := json.Marshal(message)
	if err != nil {
		h.log.Error("message encode failed", sl.Err(err))
		return
	}

	h.mu.Lock()
	targets := make([]*Connection, 0, 4)
	for _, userID := range []string{session.User1ID, session.User2ID} {
		for _, conn := range h.byUser[userID] {
			targets = append(targets, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if !conn.enqueue(frame) {
			h.log.Warn("send buffer full, frame dropped",
				slog.String("connection_id", conn.ID),
			)
		}
	}
}

func (h *Hub) archiveAsync(message *domain.Message) {
	copied := *message
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if _, err := h.archiver.Save(ctx, &copied); err != nil {
			h.log.Error("message archival failed",
				slog.String("message_id", copied.ID),
				sl.Err(err),
			)
		}
	}()
}

func (h *Hub) markPresent(sessionID, userID string) {
	h.mu.Lock()
	if gone := h.departed[sessionID]; gone != nil {
		delete(gone, userID)
		if len(gone) == 0 {
			delete(h.departed, sessionID)
		}
	}
	h.mu.Unlock()
}

// markDepartedAndCheck records that the participant left and reports whether
// both participants are now gone.
func (h *Hub) markDepartedAndCheck(session *domain.Session, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	gone := h.departed[session.ID]
	if gone == nil {
		gone = make(map[string]struct{})
		h.departed[session.ID] = gone
	}
	gone[userID] = struct{}{}

	_, left1 := gone[session.User1ID]
	_, left2 := gone[session.User2ID]
	if left1 && left2 {
		delete(h.departed, session.ID)
		return true
	}
	return false
}
