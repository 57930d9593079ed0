package mongo

import (
	"context"
	"time"

	"github.com/recruitgenius/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// attempts are kept for a month, then dropped by the TTL index
const attemptRetention = 30 * 24 * time.Hour

type AttemptRepository interface {
	Insert(ctx context.Context, a *models.TranscriptionAttempt) error
	ListByRecording(ctx context.Context, recordingID string, limit int64) ([]models.TranscriptionAttempt, error)
}

type attemptRepo struct {
	col *mongo.Collection
}

func NewAttemptRepo(db *mongo.Database) AttemptRepository {
	return &attemptRepo{col: db.Collection("transcription_attempts")}
}

func (r *attemptRepo) Insert(ctx context.Context, a *models.TranscriptionAttempt) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.ExpiresAt.IsZero() {
		a.ExpiresAt = a.Timestamp.Add(attemptRetention)
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *attemptRepo) ListByRecording(ctx context.Context, recordingID string, limit int64) ([]models.TranscriptionAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"recording_id": recordingID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.TranscriptionAttempt{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
