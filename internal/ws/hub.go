package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
)

// Hub tracks every live push-channel connection and routes frames to them.
type Hub struct {
	conns     map[*Conn]bool
	userConns map[string]*Conn

	register   chan *Conn
	unregister chan *Conn
	broadcast  chan []byte

	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		conns:      make(map[*Conn]bool),
		userConns:  make(map[string]*Conn),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		broadcast:  make(chan []byte),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConn(conn)
		case conn := <-h.unregister:
			h.unregisterConn(conn)
		case frame := <-h.broadcast:
			h.broadcastFrame(frame)
		}
	}
}

func (h *Hub) registerConn(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn] = true

	key := userKey(conn.UserID, conn.UserType)

	// One connection per user, a reconnect replaces the previous one.
	if old, exists := h.userConns[key]; exists {
		old.Close()
		delete(h.conns, old)
	}
	h.userConns[key] = conn

	h.sendConnectEvent(conn)

	log.Printf("push conn registered: user=%d role=%d", conn.UserID, conn.UserType)
}

func (h *Hub) unregisterConn(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)

	// The index slot may already belong to a replacement connection for the
	// same user, only remove it when it still points at this one.
	key := userKey(conn.UserID, conn.UserType)
	if c, exists := h.userConns[key]; exists && c == conn {
		delete(h.userConns, key)
	}

	conn.Close()

	log.Printf("push conn unregistered: user=%d role=%d", conn.UserID, conn.UserType)
}

func (h *Hub) broadcastFrame(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		select {
		case conn.Send <- frame:
		default:
			conn.Close()
			delete(h.conns, conn)
			key := userKey(conn.UserID, conn.UserType)
			if c, exists := h.userConns[key]; exists && c == conn {
				delete(h.userConns, key)
			}
		}
	}
}

// SendToUser delivers a frame to a single user's connection, if any.
func (h *Hub) SendToUser(userID uint64, userType uint8, frame []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := userKey(userID, userType)
	conn, exists := h.userConns[key]
	if !exists {
		return false
	}
	select {
	case conn.Send <- frame:
		return true
	default:
		conn.Close()
		delete(h.conns, conn)
		delete(h.userConns, key)
		return false
	}
}

// Broadcast delivers a frame to every connection.
func (h *Hub) Broadcast(frame []byte) {
	h.broadcast <- frame
}

func (h *Hub) sendConnectEvent(conn *Conn) {
	event := models.NewEvent(consts.EventConnect, &models.Peer{
		ID:   models.ID(conn.UserID),
		Type: conn.UserType,
		Name: conn.UserName,
	}, nil, nil)

	frame, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal connect event: %v", err)
		return
	}
	conn.Send <- frame
}

func userKey(userID uint64, userType uint8) string {
	return fmt.Sprintf("%d:%d", userID, userType)
}
