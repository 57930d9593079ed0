package postgres

import (
	"context"
	"errors"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type JobPostingRepository interface {
	Create(ctx context.Context, j *models.JobPosting) error
	GetByID(ctx context.Context, id string) (*models.JobPosting, error)
	List(ctx context.Context) ([]models.JobPosting, error)
}

type jobPostingRepo struct {
	db *gorm.DB
}

func NewJobPostingRepo(db *gorm.DB) JobPostingRepository {
	return &jobPostingRepo{db: db}
}

func (r *jobPostingRepo) Create(ctx context.Context, j *models.JobPosting) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *jobPostingRepo) GetByID(ctx context.Context, id string) (*models.JobPosting, error) {
	var j models.JobPosting
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &j, err
}

func (r *jobPostingRepo) List(ctx context.Context) ([]models.JobPosting, error) {
	var out []models.JobPosting
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}
