package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// outboxSize bounds the events queued for one connection. A client that falls this far
// behind is disconnected.
const outboxSize = 64

// Connection is one accepted websocket. Events reach it through its outbox, which its
// write pump drains, so senders never block on the network.
type Connection struct {
	ID     uuid.UUID
	out    chan []byte
	cancel context.CancelFunc
	once   sync.Once
}

// Hub tracks the open connections of one socket endpoint.
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
	log   *logrus.Entry
}

func NewHub(logger *logrus.Logger, name string) *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]*Connection),
		log:   logger.WithField("hub", name),
	}
}

// register adds a connection whose lifetime is bound to cancel.
func (h *Hub) register(cancel context.CancelFunc) *Connection {
	c := &Connection{ID: uuid.New(), out: make(chan []byte, outboxSize), cancel: cancel}
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (c *Connection) close() {
	c.once.Do(c.cancel)
}

// Len is the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send queues v for one connection. Unknown ids are ignored.
func (h *Hub) Send(id uuid.UUID, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("marshal outbound message")
		return
	}
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if ok {
		h.enqueue(c, data)
	}
}

// Broadcast queues v for every connection.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("marshal broadcast")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		h.enqueue(c, data)
	}
}

func (h *Hub) enqueue(c *Connection, data []byte) {
	select {
	case c.out <- data:
	default:
		h.log.WithField("conn", c.ID).Warn("outbox full, dropping connection")
		c.close()
	}
}

// writePump drains the outbox and pings the client until ctx ends.
func writePump(ctx context.Context, ws *websocket.Conn, c *Connection, log *logrus.Entry) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).WithField("conn", c.ID).Debug("write failed")
				c.close()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.close()
				return
			}
		}
	}
}
