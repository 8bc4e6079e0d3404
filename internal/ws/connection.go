// File: internal/ws/connection.go
package ws

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lexserve/go-lexserve/internal/domain"
)

var ErrConnectionClosed = errors.New("connection closed")
var ErrSendQueueFull = errors.New("send queue full")

const (
	sendQueueSize = 64
	writeTimeout  = 5 * time.Second
)

// Conn is the transport handle the registry and router operate on. The
// concrete type wraps a websocket; tests substitute fakes.
type Conn interface {
	ID() string
	Identity() domain.Identity
	Send(ev Event) error
	Close() error
	Done() <-chan struct{}
}

// Connection wraps a websocket with a bounded send queue drained by a single
// writer goroutine, so broadcasters never write the socket concurrently.
// Send never blocks: a slow consumer drops events rather than stalling a
// broadcast, and the client recovers via its next history fetch.
type Connection struct {
	id       string
	identity domain.Identity
	sock     *websocket.Conn

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket and starts its writer goroutine.
func NewConnection(sock *websocket.Conn, identity domain.Identity) *Connection {
	c := &Connection{
		id:       uuid.NewString(),
		identity: identity,
		sock:     sock,
		sendCh:   make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Connection) ID() string                { return c.id }
func (c *Connection) Identity() domain.Identity { return c.identity }

// Done is closed when the connection is shutting down.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Send queues an event for delivery. Non-blocking by design.
func (c *Connection) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	data, err := Encode(ev)
	if err != nil {
		return err
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		log.Printf("[Connection] Send queue full for %s, dropping %s event", c.identity.RoomKey(), ev.EventName())
		return ErrSendQueueFull
	}
}

// Close is idempotent. The send channel is never closed; broadcasters may
// still hold a reference while we shut down.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sock != nil {
			err = c.sock.Close()
		}
	})
	return err
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.sendCh:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
