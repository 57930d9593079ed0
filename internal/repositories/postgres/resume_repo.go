package postgres

import (
	"context"
	"errors"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type ResumeRepository interface {
	Insert(ctx context.Context, r *models.Resume) error
	GetByID(ctx context.Context, id string) (*models.Resume, error)
	List(ctx context.Context, candidateID string) ([]models.Resume, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type resumeRepo struct {
	db *gorm.DB
}

func NewResumeRepo(db *gorm.DB) ResumeRepository {
	return &resumeRepo{db: db}
}

func (r *resumeRepo) Insert(ctx context.Context, res *models.Resume) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *resumeRepo) GetByID(ctx context.Context, id string) (*models.Resume, error) {
	var row models.Resume
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

// List omits extracted_text; callers that need it use GetByID.
func (r *resumeRepo) List(ctx context.Context, candidateID string) ([]models.Resume, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Omit("extracted_text")
	if candidateID != "" {
		q = q.Where("candidate_id = ?", candidateID)
	}
	var out []models.Resume
	err := q.Order("uploaded_at DESC").Find(&out).Error
	return out, err
}

func (r *resumeRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Order("uploaded_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}
