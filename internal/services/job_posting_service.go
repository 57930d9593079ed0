package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recruitgenius/backend/internal/models"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/utils"
)

type JobPostingService interface {
	Create(ctx context.Context, title, description string) (*models.JobPosting, error)
	Get(ctx context.Context, id string) (*models.JobPosting, error)
	List(ctx context.Context) ([]models.JobPosting, error)
}

type jobPostingService struct {
	repo pgrepo.JobPostingRepository
}

func NewJobPostingService(repo pgrepo.JobPostingRepository) JobPostingService {
	return &jobPostingService{repo: repo}
}

func (s *jobPostingService) Create(ctx context.Context, title, description string) (*models.JobPosting, error) {
	const op = "JobPostingService.Create"

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and description are required", nil)
	}
	j := &models.JobPosting{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create job posting", err)
	}
	return j, nil
}

func (s *jobPostingService) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	const op = "JobPostingService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job posting not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get job posting", err)
	}
	return j, nil
}

func (s *jobPostingService) List(ctx context.Context) ([]models.JobPosting, error) {
	const op = "JobPostingService.List"

	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list job postings", err)
	}
	return out, nil
}
