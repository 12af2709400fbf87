package socket

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server upgrades HTTP requests to WebSocket subscriptions and pushes build
// events to every subscriber.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	running  atomic.Bool
	done     chan struct{}
}

// ErrNotRunning is returned by Broadcast before Run has been called.
var ErrNotRunning = errors.New("socket: server not running")

func NewServer(log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		hub: newHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dev server only, bound to a local address by the CLI.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:  log,
		done: make(chan struct{}),
	}
}

// Run starts the hub. It stops, closing all subscribers, when ctx is done.
func (s *Server) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.hub.run(ctx)
	go func() {
		<-ctx.Done()
		close(s.done)
	}()
}

// Broadcast queues a message for every subscriber. It never blocks on slow
// subscribers and is a no-op once the server has stopped.
func (s *Server) Broadcast(eventType EventType, payload interface{}) error {
	msg, err := NewMessage(eventType, payload)
	if err != nil {
		return err
	}
	return s.send(msg)
}

// BroadcastError pushes an error event to every subscriber.
func (s *Server) BroadcastError(errMsg string) error {
	return s.send(NewErrorMessage(errMsg))
}

func (s *Server) send(msg *Message) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	select {
	case s.hub.broadcast <- msg:
	case <-s.done:
	}
	return nil
}

// Subscribers reports how many connections are registered.
func (s *Server) Subscribers() int {
	return s.hub.count()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.running.Load() {
		http.Error(w, ErrNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered with an HTTP error.
		s.log.Debugf("socket: upgrade failed: %v", err)
		return
	}

	conn := newConnection(ws)
	select {
	case s.hub.register <- conn:
	case <-s.done:
		_ = ws.Close()
		return
	}

	go conn.writePump(s.log)
	go conn.readPump(s.disconnect)
}

func (s *Server) disconnect(conn *connection) {
	select {
	case s.hub.unregister <- conn:
	case <-s.done:
	}
}
