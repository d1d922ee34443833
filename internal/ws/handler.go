package ws

import (
	"log"
	"net/http"
	"time"

	"feedback-app/internal/consts"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TokenValidator checks a push-channel token and resolves the identity
// behind it.
type TokenValidator func(token string) (userID uint64, username, role string, err error)

type Handler struct {
	hub      *Hub
	validate TokenValidator
}

func NewHandler(validate TokenValidator) *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{hub: hub, validate: validate}
}

// HandleConnection upgrades the request and registers the connection. A bad
// token still upgrades, then closes with a policy-violation code so the
// client can tell an auth failure apart from a transient disconnect.
func (h *Handler) HandleConnection(c *gin.Context) {
	token := c.Query("token")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("upgrade push conn: %v", err)
		return
	}

	userID, username, role, err := h.validate(token)
	if err != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	client := NewConn(conn, userID, consts.RoleNumber(role), username)
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump(h.hub)
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.HandleConnection)
}

// SendToUser delivers a frame to one user over the push channel.
func (h *Handler) SendToUser(userID uint64, userType uint8, frame []byte) bool {
	return h.hub.SendToUser(userID, userType, frame)
}

// Broadcast delivers a frame to every connected client.
func (h *Handler) Broadcast(frame []byte) {
	h.hub.Broadcast(frame)
}
