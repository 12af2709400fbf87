package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be lower than pongWait
	maxMessageSize = 512                 // subscribers only send control frames
)

type connection struct {
	ws   *websocket.Conn
	send chan *Message

	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn) *connection {
	return &connection{
		ws:   ws,
		send: make(chan *Message, 32),
	}
}

func (c *connection) write(msgType int, payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(msgType, payload)
}

// writePump forwards queued messages and keeps the connection alive with
// pings. It owns all writes to ws.
func (c *connection) writePump(log logrus.FieldLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				log.Warnf("socket: failed to marshal %s message: %v", message.Type, err)
				continue
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				log.Debugf("socket: write failed: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards incoming frames and reports the disconnect. Reading is
// still required for gorilla to process pongs and close frames.
func (c *connection) readPump(disconnect func(*connection)) {
	defer func() {
		disconnect(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *connection) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}
