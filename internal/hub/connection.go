package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBuffer = 64
)

// Connection is one live duplex connection bound to a participant. Frames for
// the client go through the buffered send channel; the write pump is its only
// reader.
type Connection struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn

	// mu guards closed and orders every send against the close of the
	// channel; enqueue on a closed connection must never panic.
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newConnection(hub *Hub, userID string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Connection) run() {
	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("connection read failed",
					slog.String("connection_id", c.ID),
					sl.Err(err),
				)
			}
			break
		}

		var event domain.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			// A malformed frame is dropped; it never closes the connection.
			c.hub.log.Warn("malformed event dropped",
				slog.String("connection_id", c.ID),
				sl.Err(err),
			)
			continue
		}

		c.hub.handleEvent(c, event)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the write pump without blocking; a slow client
// drops its own frames, never the partner's. Frames for a connection that is
// already shutting down are dropped.
func (c *Connection) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once, serialized against enqueue.
func (c *Connection) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}
