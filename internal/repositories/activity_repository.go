package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anonto42/microblog/backend/internal/models"
)

const defaultActivityLimit = 50

// ActivityRepository stores follow and like notifications.
type ActivityRepository interface {
	Record(ctx context.Context, activity *models.Activity) error
	GetByRecipientID(ctx context.Context, recipientID uint, limit int64) ([]models.Activity, error)
}

// MongoActivityRepository implements ActivityRepository for MongoDB
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoActivityRepository
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{collection: db.Collection("activities")}
}

func (r *MongoActivityRepository) Record(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, activity)
	return err
}

// GetByRecipientID returns the newest activities addressed to recipientID.
func (r *MongoActivityRepository) GetByRecipientID(ctx context.Context, recipientID uint, limit int64) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"recipient_id": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// NopActivityRepository drops every activity. It is used when MongoDB is not
// configured.
type NopActivityRepository struct{}

func (NopActivityRepository) Record(context.Context, *models.Activity) error { return nil }

func (NopActivityRepository) GetByRecipientID(context.Context, uint, int64) ([]models.Activity, error) {
	return []models.Activity{}, nil
}
