package models

import "time"

type Feedback struct {
	ID          ID        `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Content     string    `bson:"content" json:"content"`
	Contact     string    `bson:"contact,omitempty" json:"contact,omitempty"`
	CreatorID   ID        `bson:"creator_id" json:"creator_id"`
	CreatorType uint8     `bson:"creator_type" json:"creator_type"`
	CreatorName string    `bson:"-" json:"creator_name,omitempty"`
	TargetID    ID        `bson:"target_id" json:"target_id"`
	TargetType  uint8     `bson:"target_type" json:"target_type"`
	TargetName  string    `bson:"-" json:"target_name,omitempty"`
	Status      uint8     `bson:"status" json:"status"`
	Images      []string  `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`

	// UnreadCount is maintained by the client projection only, it is never
	// stored or returned by the server.
	UnreadCount int `bson:"-" json:"-"`
}

type CreateFeedbackRequest struct {
	Title      string   `json:"title" binding:"required"`
	Content    string   `json:"content" binding:"required"`
	Contact    string   `json:"contact"`
	TargetID   ID       `json:"target_id" binding:"required"`
	TargetType uint8    `json:"target_type" binding:"required"`
	Images     []string `json:"images"`
}

type UpdateStatusRequest struct {
	Status uint8 `json:"status" binding:"required"`
}
