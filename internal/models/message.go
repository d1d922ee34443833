package models

import "time"

type FeedbackMessage struct {
	ID          ID        `bson:"_id" json:"id"`
	FeedbackID  ID        `bson:"feedback_id" json:"feedback_id"`
	SenderID    ID        `bson:"sender_id" json:"sender_id"`
	SenderType  uint8     `bson:"sender_type" json:"sender_type"`
	SenderName  string    `bson:"-" json:"sender_name,omitempty"`
	ContentType uint8     `bson:"content_type" json:"content_type"`
	Content     string    `bson:"content" json:"content"`
	IsRead      uint8     `bson:"is_read" json:"is_read"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

type CreateMessageRequest struct {
	FeedbackID  ID     `json:"feedback_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
	ContentType uint8  `json:"content_type"`
}
