package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// recordActivity stores a notification for an already committed action.
// Failures are only logged.
func recordActivity(ctx context.Context, repo repositories.ActivityRepository, log *zap.Logger, activity *models.Activity) {
	if repo == nil || activity.ActorID == activity.RecipientID {
		return
	}
	if err := repo.Record(ctx, activity); err != nil {
		log.Warn("failed to record activity",
			zap.String("type", activity.Type),
			zap.Uint("actor_id", activity.ActorID),
			zap.Uint("recipient_id", activity.RecipientID),
			zap.Error(err),
		)
	}
}
