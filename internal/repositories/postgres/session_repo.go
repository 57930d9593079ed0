package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]models.Session, error)

	// AdvanceProgress moves progress from `from` to from+1. It reports false
	// when the row was not at `from` or is already completed.
	AdvanceProgress(ctx context.Context, id string, from int) (bool, error)
	// Complete sets progress to from+1, is_completed and completed_at under
	// the same precondition as AdvanceProgress.
	Complete(ctx context.Context, id string, from int, at time.Time) (bool, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) ListByCandidate(ctx context.Context, candidateID string) ([]models.Session, error) {
	var out []models.Session
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *sessionRepo) AdvanceProgress(ctx context.Context, id string, from int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND progress = ? AND is_completed = false", id, from).
		Where("progress + 1 < cardinality(questions)").
		Update("progress", gorm.Expr("progress + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepo) Complete(ctx context.Context, id string, from int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND progress = ? AND is_completed = false", id, from).
		Where("progress + 1 = cardinality(questions)").
		Updates(map[string]any{
			"progress":     gorm.Expr("progress + 1"),
			"is_completed": true,
			"completed_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
