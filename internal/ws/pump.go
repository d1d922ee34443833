package ws

import (
	"bytes"
	"encoding/json"
	"log"
	"time"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var (
	newline = []byte("\n")
	space   = []byte(" ")
)

// ReadPump consumes frames from one connection until it drops, relaying
// client-originated events through the hub. A corrupt frame is logged and
// skipped, never fatal to the connection.
func (c *Conn) ReadPump(hub *Hub) {
	defer func() {
		hub.unregister <- c
	}()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("push conn read error: %v", err)
			}
			break
		}

		frame = bytes.TrimSpace(bytes.Replace(frame, newline, space, -1))

		var event models.WSEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			log.Printf("unmarshal push frame: %v", err)
			continue
		}

		// Stamp sender identity from the connection so clients cannot spoof it.
		event.Sender = &models.Peer{
			ID:   models.ID(c.UserID),
			Type: c.UserType,
			Name: c.UserName,
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now()
		}

		stamped, err := json.Marshal(event)
		if err != nil {
			log.Printf("marshal push frame: %v", err)
			continue
		}

		switch event.Event {
		case consts.EventMessage, consts.EventNewFeedback:
			if event.Receiver != nil {
				hub.SendToUser(event.Receiver.ID.Uint64(), event.Receiver.Type, stamped)
			} else {
				hub.broadcast <- stamped
			}
		case consts.EventTyping, consts.EventRead:
			if event.Receiver != nil && event.Receiver.ID != 0 {
				hub.SendToUser(event.Receiver.ID.Uint64(), event.Receiver.Type, stamped)
			} else {
				hub.broadcast <- stamped
			}
		case consts.EventStatusChange, consts.EventFeedbackDelete:
			hub.broadcast <- stamped
		default:
			log.Printf("unknown push event kind: %s", event.Event)
		}
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.Send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.sock.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
