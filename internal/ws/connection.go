// Package ws adapts websocket connections to the chat router.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
	"github.com/LiorVainer/web-final-project-server/pkg/metrics"
)

var (
	// ErrSendBufferFull is returned by Send when the client cannot keep up
	// and the outbound buffer is exhausted. The event is dropped, not queued.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnectionClosed is returned by Send after the connection has shut
	// down.
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection is one upgraded websocket client. It implements chat.Session:
// the read pump turns incoming frames into router events and the write pump
// drains the outbound buffer.
type Connection struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	// done signals shutdown; send is never closed so a concurrent broadcast
	// that still holds this connection cannot panic on a closed channel.
	done chan struct{}

	logger *logger.Logger

	writeTimeout time.Duration
	closeOnce    sync.Once
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the authenticated party on this connection.
func (c *Connection) UserID() string {
	return c.userID
}

// Send queues an event for delivery to the client. Delivery is best-effort:
// when the buffer is full the event is dropped and ErrSendBufferFull
// returned.
func (c *Connection) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(model.Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn("dropping event, send buffer full",
			zap.String("connection_id", c.id),
			zap.String("event", event),
		)
		return ErrSendBufferFull
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump reads frames until the connection drops and dispatches them to
// the router. It owns disconnect handling.
func (c *Connection) readPump(ctx context.Context, h *Handler) {
	defer func() {
		h.router.HandleDisconnect(ctx, c)
		c.close()
		metrics.DecrementWSConnections()
	}()

	c.conn.SetReadLimit(h.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.Error(err),
					zap.String("connection_id", c.id),
				)
			}
			return
		}
		c.dispatch(ctx, h, raw)
	}
}

// dispatch routes one inbound frame. A panicking handler is contained here
// so one bad event cannot take the process or unrelated connections down.
func (c *Connection) dispatch(ctx context.Context, h *Handler, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in chat event handler",
				zap.Any("panic", r),
				zap.String("connection_id", c.id),
			)
		}
	}()

	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("malformed websocket frame",
			zap.Error(err),
			zap.String("connection_id", c.id),
		)
		metrics.RecordDroppedEvent("unknown", "malformed_frame")
		return
	}

	switch env.Event {
	case model.EventJoinRoom:
		var payload model.JoinRoomPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.logger.Warn("malformed joinRoom payload",
				zap.Error(err),
				zap.String("connection_id", c.id),
			)
			metrics.RecordDroppedEvent(model.EventJoinRoom, "malformed_payload")
			return
		}
		h.router.HandleJoinRoom(ctx, c, payload)

	case model.EventSendMessage:
		var payload model.SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.logger.Warn("malformed sendMessage payload",
				zap.Error(err),
				zap.String("connection_id", c.id),
			)
			metrics.RecordDroppedEvent(model.EventSendMessage, "malformed_payload")
			return
		}
		h.router.HandleSendMessage(ctx, c, payload)

	default:
		c.logger.Debug("unknown event",
			zap.String("event", env.Event),
			zap.String("connection_id", c.id),
		)
		metrics.RecordDroppedEvent(env.Event, "unknown_event")
	}
}

// writePump drains the outbound buffer and keeps the connection alive with
// periodic pings.
func (c *Connection) writePump(h *Handler) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
