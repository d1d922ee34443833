package services

// Pusher is the push-channel fan-out surface the services emit events through.
// internal/ws.Handler implements it.
type Pusher interface {
	SendToUser(userID uint64, userType uint8, frame []byte) bool
	Broadcast(frame []byte)
}
