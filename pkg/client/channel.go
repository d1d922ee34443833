package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"

	"feedback-app/internal/models"

	"github.com/gorilla/websocket"
)

// EventSender is the outbound half of the push channel, the reconciler uses
// it for typing and read events.
type EventSender interface {
	SendEvent(event models.WSEvent) error
}

// Channel is a live push-channel connection. Inbound frames are handed to
// the reconciler in arrival order, a close with a policy-violation code is
// treated as authentication failure.
type Channel struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// Dial connects the push channel for a session. wsURL is the ws:// endpoint
// without query parameters.
func Dial(wsURL string, session *Session) (*Channel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("user_id", session.UserID.String())
	q.Set("user_type", fmt.Sprintf("%d", session.RoleNumber()))
	q.Set("user_name", session.DisplayName)
	q.Set("token", session.Token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Channel{conn: conn}, nil
}

// Listen consumes frames until the connection drops, delivering each to
// handle. The server coalesces queued frames into one websocket message
// separated by newlines, they are split back apart here. onAuthFailure
// fires when the server closed with a policy-violation code, onDisconnect
// for any other close.
func (ch *Channel) Listen(handle func(raw []byte), onAuthFailure, onDisconnect func()) {
	for {
		_, frame, err := ch.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				if onAuthFailure != nil {
					onAuthFailure()
				}
				return
			}
			ch.mu.Lock()
			wasClosed := ch.closed
			ch.mu.Unlock()
			if !wasClosed && onDisconnect != nil {
				onDisconnect()
			}
			return
		}

		for _, part := range bytes.Split(frame, []byte("\n")) {
			part = bytes.TrimSpace(part)
			if len(part) == 0 {
				continue
			}
			handle(part)
		}
	}
}

// SendEvent writes one envelope onto the channel.
func (ch *Channel) SendEvent(event models.WSEvent) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return fmt.Errorf("push channel closed")
	}
	return ch.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close shuts the connection down. Safe to call more than once.
func (ch *Channel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	ch.closed = true

	err := ch.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Printf("push channel close: %v", err)
	}
	ch.conn.Close()
}
