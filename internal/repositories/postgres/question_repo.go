package postgres

import (
	"context"
	"errors"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	// GetByIDs returns the questions that exist, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]models.Question, error)
	List(ctx context.Context, category string) ([]models.Question, error)
	Update(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id string) error
}

type questionRepo struct {
	db *gorm.DB
}

func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, q *models.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &q, err
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Question
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *questionRepo) List(ctx context.Context, category string) ([]models.Question, error) {
	q := r.db.WithContext(ctx).Model(&models.Question{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []models.Question
	err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *questionRepo) Update(ctx context.Context, q *models.Question) error {
	res := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", q.ID).
		Updates(map[string]any{
			"text":       q.Text,
			"category":   q.Category,
			"updated_at": q.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *questionRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Question{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
