package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recruitgenius/backend/internal/models"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/utils"
)

type CandidateService interface {
	// Register returns the existing candidate for email or creates one.
	Register(ctx context.Context, name, email string) (*models.Candidate, error)
	Get(ctx context.Context, id string) (*models.Candidate, error)
}

type candidateService struct {
	repo pgrepo.CandidateRepository
}

func NewCandidateService(repo pgrepo.CandidateRepository) CandidateService {
	return &candidateService{repo: repo}
}

func (s *candidateService) Register(ctx context.Context, name, email string) (*models.Candidate, error) {
	const op = "CandidateService.Register"

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email is required", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email is invalid", err)
	}
	email = strings.ToLower(addr.Address)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to look up candidate", err)
	}

	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	c := &models.Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create candidate", err)
	}
	return c, nil
}

func (s *candidateService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	const op = "CandidateService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "candidate not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get candidate", err)
	}
	return c, nil
}
