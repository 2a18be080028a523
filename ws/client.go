package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"groupchat/domain"
	"groupchat/domain/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

// Client owns one websocket connection. Outbound events go through the
// buffered send channel so the router never blocks on a slow peer, and
// a single write pump keeps gorilla's one-writer rule.
type Client struct {
	id   domain.ConnectionID
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

func newClient(id domain.ConnectionID, conn *websocket.Conn, log *slog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		log:  log,
	}
}

func (c *Client) ID() domain.ConnectionID {
	return c.id
}

// Consume implements contract.EventSink. A full buffer means the peer
// stopped draining, so the frame is dropped and the error lets the
// router log the dead subscriber.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	data, err := encodeEvent(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.EventType(), err)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for connection %s", c.id)
	}
}

// readPump delivers inbound envelopes to onMessage until the peer
// disconnects, then calls onClose exactly once.
func (c *Client) readPump(onMessage func(Envelope), onClose func()) {
	defer func() {
		onClose()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", "connection", c.id, "error", err)
			}
			return
		}
		onMessage(env)
	}
}

// writePump flushes the send channel and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	close(c.send)
}
