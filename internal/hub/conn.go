package hub

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Role classifies a connection once the router has seen auth or subscribe.
type Role string

const (
	RoleUnclassified Role = "unclassified"
	RoleHost         Role = "host"
	RoleVisitor      Role = "visitor"
)

const writeWait = 10 * time.Second

// maxMessageSize bounds inbound frames. SDP offers are the largest expected
// payload and stay well under this.
const maxMessageSize = 64 * 1024

// Conn is one WebSocket connection. The role, identity and call-id fields
// are guarded by the hub lock; alive is flipped from the read pump's pong
// handler and inspected by the heartbeat monitor, so it is atomic.
type Conn struct {
	ID string

	ws    *websocket.Conn
	send  chan []byte
	pings chan struct{}
	done  chan struct{}
	once  sync.Once

	alive atomic.Bool

	// guarded by Hub.mu
	role          Role
	userID        string
	watchedHostID string
	pendingCallID string
	activeCallID  string
}

func newConn(ws *websocket.Conn, sendBuffer int) *Conn {
	c := &Conn{
		ID:    uuid.New().String(),
		ws:    ws,
		send:  make(chan []byte, sendBuffer),
		pings: make(chan struct{}, 1),
		done:  make(chan struct{}),
		role:  RoleUnclassified,
	}
	c.alive.Store(true)
	return c
}

// enqueue hands a frame to the write pump. A full buffer drops the frame
// rather than blocking the caller; a peer that slow is about to be reaped
// by the heartbeat anyway.
func (c *Conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("conn %s: send buffer full, dropping message", c.ID)
	}
}

func (c *Conn) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("conn %s: marshal failed: %v", c.ID, err)
		return
	}
	c.enqueue(data)
}

// probe requests a liveness ping from the write pump.
func (c *Conn) probe() {
	select {
	case c.pings <- struct{}{}:
	default:
	}
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// readPump delivers this connection's inbound stream to the hub, one message
// at a time, preserving per-connection ordering. It owns all reads on ws.
func (c *Conn) readPump(h *Hub) {
	defer func() {
		h.Disconnect(c)
		c.close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("conn %s: read error: %v", c.ID, err)
			}
			return
		}
		h.HandleMessage(c, message)
	}
}

// writePump owns all writes on ws: queued frames and liveness pings.
func (c *Conn) writePump() {
	defer c.ws.Close()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.pings:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
