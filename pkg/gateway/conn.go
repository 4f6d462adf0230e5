package gateway

import (
	"sync"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/draftforge/draftforge/pkg/events"
)

// maxQueuedFrames bounds the per-connection write queue.
const maxQueuedFrames = 256

type outFrame struct {
	event events.Type
	data  []byte
}

// wsConn adapts one websocket to the events.Conn contract: Send never
// blocks, and a congested queue sheds old non-critical frames before it ever
// refuses a critical one.
type wsConn struct {
	ws  *websocket.Conn
	log slog.Logger

	mu     sync.Mutex
	queue  []outFrame
	closed bool

	notify chan struct{}
	done   chan struct{}
}

func newWSConn(ws *websocket.Conn, log slog.Logger) *wsConn {
	c := &wsConn{
		ws:     ws,
		log:    log,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues one event for delivery.
func (c *wsConn) Send(t events.Type, payload interface{}) {
	data, err := events.Encode(t, payload)
	if err != nil {
		c.log.Errorf("encoding %s event: %v", t, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if len(c.queue) >= maxQueuedFrames {
		if i := c.firstSheddable(); i >= 0 {
			c.log.Warnf("write queue full, shedding %s", c.queue[i].event)
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
		} else if !events.Critical(t) {
			c.mu.Unlock()
			c.log.Warnf("write queue full of critical frames, dropping %s", t)
			return
		}
	}
	c.queue = append(c.queue, outFrame{event: t, data: data})
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// firstSheddable finds the oldest non-critical queued frame. Lock held.
func (c *wsConn) firstSheddable() int {
	for i, f := range c.queue {
		if !events.Critical(f.event) {
			return i
		}
	}
	return -1
}

// Close tears the connection down and stops the write pump.
func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	c.ws.Close()
}

func (c *wsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}
		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			frame := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			if err := c.ws.WriteMessage(websocket.TextMessage, frame.data); err != nil {
				c.log.Debugf("write failed, closing connection: %v", err)
				c.Close()
				return
			}
		}
	}
}
