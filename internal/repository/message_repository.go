package repository

import (
	"context"
	"time"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.FeedbackMessage) error
	GetByFeedbackID(ctx context.Context, feedbackID uint64) ([]models.FeedbackMessage, error)
	MarkAsRead(ctx context.Context, messageID uint64) error
	DeleteByFeedbackID(ctx context.Context, feedbackID uint64) error
}

type MongoMessageRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{db: db, col: db.Collection("feedback_messages")}
}

func (r *MongoMessageRepository) Create(ctx context.Context, msg *models.FeedbackMessage) error {
	id, err := nextSequence(ctx, r.db, "feedback_messages")
	if err != nil {
		return err
	}
	msg.ID = models.ID(id)
	msg.IsRead = consts.Unread
	msg.CreatedAt = time.Now()
	_, err = r.col.InsertOne(ctx, msg)
	return err
}

func (r *MongoMessageRepository) GetByFeedbackID(ctx context.Context, feedbackID uint64) ([]models.FeedbackMessage, error) {
	cursor, err := r.col.Find(ctx, bson.M{"feedback_id": feedbackID},
		options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, err
	}
	var result []models.FeedbackMessage
	err = cursor.All(ctx, &result)
	return result, err
}

func (r *MongoMessageRepository) MarkAsRead(ctx context.Context, messageID uint64) error {
	res, err := r.col.UpdateByID(ctx, messageID, bson.M{
		"$set": bson.M{"is_read": consts.Read},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoMessageRepository) DeleteByFeedbackID(ctx context.Context, feedbackID uint64) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"feedback_id": feedbackID})
	return err
}
