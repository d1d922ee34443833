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

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id uint64) (*models.Feedback, error)
	GetByCreator(ctx context.Context, creatorID uint64, creatorType uint8) ([]models.Feedback, error)
	GetByTarget(ctx context.Context, targetID uint64, targetType uint8) ([]models.Feedback, error)
	GetAll(ctx context.Context) ([]models.Feedback, error)
	UpdateStatus(ctx context.Context, id uint64, status uint8) error
	Delete(ctx context.Context, id uint64) error
}

type MongoFeedbackRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewMongoFeedbackRepository(db *mongo.Database) *MongoFeedbackRepository {
	return &MongoFeedbackRepository{db: db, col: db.Collection("feedbacks")}
}

func (r *MongoFeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	id, err := nextSequence(ctx, r.db, "feedbacks")
	if err != nil {
		return err
	}
	feedback.ID = models.ID(id)
	if feedback.Status == 0 {
		feedback.Status = consts.StatusOpen
	}
	feedback.CreatedAt = time.Now()
	feedback.UpdatedAt = time.Now()
	_, err = r.col.InsertOne(ctx, feedback)
	return err
}

func (r *MongoFeedbackRepository) GetByID(ctx context.Context, id uint64) (*models.Feedback, error) {
	var feedback models.Feedback
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&feedback)
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *MongoFeedbackRepository) GetByCreator(ctx context.Context, creatorID uint64, creatorType uint8) ([]models.Feedback, error) {
	return r.find(ctx, bson.M{"creator_id": creatorID, "creator_type": creatorType})
}

func (r *MongoFeedbackRepository) GetByTarget(ctx context.Context, targetID uint64, targetType uint8) ([]models.Feedback, error) {
	return r.find(ctx, bson.M{"target_id": targetID, "target_type": targetType})
}

func (r *MongoFeedbackRepository) GetAll(ctx context.Context) ([]models.Feedback, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoFeedbackRepository) find(ctx context.Context, filter bson.M) ([]models.Feedback, error) {
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	var result []models.Feedback
	err = cursor.All(ctx, &result)
	return result, err
}

func (r *MongoFeedbackRepository) UpdateStatus(ctx context.Context, id uint64, status uint8) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoFeedbackRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
