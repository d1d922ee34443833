package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one registered push-channel connection.
type Conn struct {
	sock     *websocket.Conn
	UserID   uint64
	UserType uint8
	UserName string
	Send     chan []byte

	mu      sync.Mutex
	closing bool
}

func NewConn(sock *websocket.Conn, userID uint64, userType uint8, userName string) *Conn {
	return &Conn{
		sock:     sock,
		UserID:   userID,
		UserType: userType,
		UserName: userName,
		Send:     make(chan []byte, 256),
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return
	}
	c.closing = true
	c.sock.Close()
	close(c.Send)
}
