package models

import (
	"encoding/json"
	"time"
)

// WSEvent is the envelope carried on the push channel in both directions.
// Data stays raw until the event kind is known.
type WSEvent struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Sender    *Peer           `json:"sender,omitempty"`
	Receiver  *Peer           `json:"receiver,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Peer identifies one end of a push event.
type Peer struct {
	ID   ID     `json:"id"`
	Type uint8  `json:"type"`
	Name string `json:"name,omitempty"`
}

// MessageData is the payload of a "message" event.
type MessageData struct {
	FeedbackID  ID     `json:"feedback_id"`
	MessageID   ID     `json:"message_id"`
	ContentType uint8  `json:"content_type"`
	Content     string `json:"content"`
}

// StatusChangeData is the payload of a "status_change" event.
type StatusChangeData struct {
	FeedbackID ID    `json:"feedback_id"`
	OldStatus  uint8 `json:"old_status"`
	NewStatus  uint8 `json:"new_status"`
}

// TypingData is the payload of a "typing" event.
type TypingData struct {
	FeedbackID ID   `json:"feedback_id"`
	IsTyping   bool `json:"is_typing"`
}

// ReadData is the payload of a "read" event.
type ReadData struct {
	MessageID  ID `json:"message_id"`
	FeedbackID ID `json:"feedback_id,omitempty"`
}

// FeedbackDeleteData is the payload of a "feedback_delete" event.
type FeedbackDeleteData struct {
	FeedbackID ID `json:"feedback_id"`
}

// NewFeedbackData is the payload of a "new_feedback" event. The client does
// not trust it to carry the authoritative item and refetches the list.
type NewFeedbackData struct {
	FeedbackID ID     `json:"feedback_id"`
	Title      string `json:"title"`
	CreatorID  ID     `json:"creator_id"`
	TargetID   ID     `json:"target_id"`
	TargetType uint8  `json:"target_type"`
}

// NewEvent builds an envelope with a marshaled payload. Marshal failures
// cannot happen for the payload types above.
func NewEvent(kind string, sender *Peer, receiver *Peer, payload any) WSEvent {
	raw, _ := json.Marshal(payload)
	return WSEvent{
		Event:     kind,
		Timestamp: time.Now(),
		Sender:    sender,
		Receiver:  receiver,
		Data:      raw,
	}
}
