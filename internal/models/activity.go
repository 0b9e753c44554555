package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity types
const (
	ActivityFollow = "follow"
	ActivityLike   = "like"
)

// Activity is a notification-style record kept in MongoDB after a follow or
// like commits.
type Activity struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Type        string             `json:"type" bson:"type"`
	ActorID     uint               `json:"actor_id" bson:"actor_id"`
	RecipientID uint               `json:"recipient_id" bson:"recipient_id"`
	TargetID    uint               `json:"target_id,omitempty" bson:"target_id,omitempty"`
	TargetType  string             `json:"target_type" bson:"target_type"`
	Message     string             `json:"message" bson:"message"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
