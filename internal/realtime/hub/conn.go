package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/smallbiznis/nextway/internal/realtime/event"
	"github.com/smallbiznis/nextway/internal/realtime/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10

	sendBufferSize = 32
)

// Conn is one live socket session. Created on accept, destroyed on
// disconnect; nothing about it is persisted.
type Conn struct {
	ID      string
	Actor   room.ActorType
	ActorID string

	ws   *websocket.Conn
	send chan event.Envelope

	// mu guards closed so a broadcast racing a disconnect degrades to a
	// dropped frame instead of a send on a closed channel.
	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, actor room.ActorType, actorID string) *Conn {
	return &Conn{
		ID:      uuid.NewString(),
		Actor:   actor,
		ActorID: actorID,
		ws:      ws,
		send:    make(chan event.Envelope, sendBufferSize),
	}
}

// enqueue hands an envelope to the write pump. Delivery is best-effort:
// a connection with a full buffer drops the frame instead of blocking the
// broadcaster, and a closed connection drops it outright.
func (c *Conn) enqueue(env event.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with pings. One goroutine per connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
