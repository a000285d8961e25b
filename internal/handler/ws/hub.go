package ws

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

type connection struct {
	id   string
	sock *websocket.Conn
	out  chan outboundEnvelope
	done chan struct{}
}

// Hub tracks live websocket connections by id and delivers outbound events.
// It implements the coordinator's Notifier: delivery is fire-and-forget, and
// sending to a vanished or backed-up connection is silently dropped. Each
// connection drains its own send queue on a dedicated writer goroutine, so a
// stalled client never blocks the dispatch path.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

// NewHub returns an empty connection hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*connection)}
}

func (h *Hub) register(sock *websocket.Conn) *connection {
	conn := &connection{
		id:   uuid.NewString(),
		sock: sock,
		out:  make(chan outboundEnvelope, sendQueueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	go conn.writeLoop()
	return conn
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	conn, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		close(conn.done)
	}
}

// Send enqueues one event envelope for a connection. It never blocks: a full
// queue means the client has stopped draining, and the event is dropped.
func (h *Hub) Send(connID, event string, payload any) {
	h.mu.RLock()
	conn := h.conns[connID]
	h.mu.RUnlock()
	if conn == nil {
		return
	}

	select {
	case conn.out <- outboundEnvelope{Event: event, Data: payload}:
	case <-conn.done:
	default:
		log.Printf("[websocket] dropping event conn=%s event=%s: send queue full", connID, event)
	}
}

func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.out:
			c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteJSON(env); err != nil {
				log.Printf("[websocket] write failed conn=%s event=%s: %v", c.id, env.Event, err)
			}
		}
	}
}
