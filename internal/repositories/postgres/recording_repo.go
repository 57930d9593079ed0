package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type RecordingRepository interface {
	Insert(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	ExistsForQuestion(ctx context.Context, sessionID, questionID string) (bool, error)
	// ListBySession returns recordings oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]models.Recording, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]models.Recording, error)

	// MarkProcessed stores the transcription only if the row is still
	// unprocessed, and reports whether this call flipped it.
	MarkProcessed(ctx context.Context, id string, t models.Transcription, at time.Time) (bool, error)
}

type recordingRepo struct {
	db *gorm.DB
}

func NewRecordingRepo(db *gorm.DB) RecordingRepository {
	return &recordingRepo{db: db}
}

func (r *recordingRepo) Insert(ctx context.Context, rec *models.Recording) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordingRepo) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	var rec models.Recording
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}

func (r *recordingRepo) ExistsForQuestion(ctx context.Context, sessionID, questionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *recordingRepo) ListBySession(ctx context.Context, sessionID string) ([]models.Recording, error) {
	var out []models.Recording
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *recordingRepo) ListByCandidate(ctx context.Context, candidateID string) ([]models.Recording, error) {
	var out []models.Recording
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *recordingRepo) MarkProcessed(ctx context.Context, id string, t models.Transcription, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND is_processed = false", id).
		Updates(map[string]any{
			"transcript":      t.Transcript,
			"sentiment_score": t.SentimentScore,
			"sentiment_type":  t.SentimentType,
			"is_processed":    true,
			"processed_at":    at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
