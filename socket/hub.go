package socket

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub keeps the connected subscribers and broadcasts messages to them.
type Hub struct {
	clients    map[*connection]bool
	register   chan *connection
	unregister chan *connection
	broadcast  chan *Message

	mu  sync.RWMutex
	log logrus.FieldLogger
}

func newHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*connection]bool),
		register:   make(chan *connection),
		unregister: make(chan *connection),
		broadcast:  make(chan *Message, 16),
		log:        log,
	}
}

// run owns registration and fan-out until ctx is done. Must run in its own
// goroutine.
func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				delete(h.clients, conn)
				conn.closeSend()
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debugf("hub: subscriber registered, %d connected", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.closeSend()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debugf("hub: subscriber left, %d connected", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				select {
				case conn.send <- message:
				default:
					// Slow or dead subscriber.
					h.log.Warnf("hub: dropping subscriber %s, send buffer full", conn.ws.RemoteAddr())
					delete(h.clients, conn)
					conn.closeSend()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
