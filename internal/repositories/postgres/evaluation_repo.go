package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
	"gorm.io/gorm"
)

type EvaluationRepository interface {
	Insert(ctx context.Context, e *models.ResumeEvaluation) error
	GetByID(ctx context.Context, id string) (*models.ResumeEvaluation, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]models.ResumeEvaluation, error)
	ListRows(ctx context.Context, f models.EvaluationFilter) ([]models.EvaluationRow, error)

	// UpdateReview applies status/remarks/selected changes. Keys are column names.
	UpdateReview(ctx context.Context, id string, fields map[string]any) error
	// AttachSession links a session only if none is linked yet.
	AttachSession(ctx context.Context, id, sessionID string) (bool, error)
}

type evaluationRepo struct {
	db *gorm.DB
}

func NewEvaluationRepo(db *gorm.DB) EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) Insert(ctx context.Context, e *models.ResumeEvaluation) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *evaluationRepo) GetByID(ctx context.Context, id string) (*models.ResumeEvaluation, error) {
	var e models.ResumeEvaluation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *evaluationRepo) ListByCandidate(ctx context.Context, candidateID string) ([]models.ResumeEvaluation, error) {
	var out []models.ResumeEvaluation
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

const evaluationRowSelect = `e.*,
	c.name AS candidate_name,
	c.email AS candidate_email,
	j.title AS job_title,
	(SELECT COUNT(*) FROM recordings rc WHERE rc.candidate_id = e.candidate_id) AS recording_count,
	(SELECT COUNT(*) FROM recordings rc WHERE rc.candidate_id = e.candidate_id AND rc.is_processed) AS processed_count`

func (r *evaluationRepo) ListRows(ctx context.Context, f models.EvaluationFilter) ([]models.EvaluationRow, error) {
	q := r.db.WithContext(ctx).
		Table("resume_evaluations AS e").
		Select(evaluationRowSelect).
		Joins("LEFT JOIN candidates c ON c.id = e.candidate_id").
		Joins("LEFT JOIN job_postings j ON j.id = e.job_posting_id")

	if f.JobPostingID != "" {
		q = q.Where("e.job_posting_id = ?", f.JobPostingID)
	}
	if f.CandidateID != "" {
		q = q.Where("e.candidate_id = ?", f.CandidateID)
	}
	if f.Status != "" {
		q = q.Where("e.status = ?", f.Status)
	}
	if f.SelectedOnly {
		q = q.Where("e.selected_for_interview = true")
	}
	if f.MinScore > 0 {
		q = q.Where("e.overall_score >= ?", f.MinScore)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []models.EvaluationRow
	err := q.Order("e.overall_score DESC").
		Order("e.created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Scan(&out).Error
	return out, err
}

func (r *evaluationRepo) UpdateReview(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.ResumeEvaluation{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *evaluationRepo) AttachSession(ctx context.Context, id, sessionID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ResumeEvaluation{}).
		Where("id = ? AND session_id IS NULL", id).
		Updates(map[string]any{
			"session_id":             sessionID,
			"selected_for_interview": true,
			"status":                 models.EvaluationInterviewing,
			"updated_at":             time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
