package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/internal/cache"
	"github.com/recruitgenius/backend/internal/models"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/utils"
)

type QuestionService interface {
	Create(ctx context.Context, text, category string) (*models.Question, error)
	Get(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, category string) ([]models.Question, error)
	Update(ctx context.Context, id, text, category string) (*models.Question, error)
	Delete(ctx context.Context, id string) error
}

type questionService struct {
	repo  pgrepo.QuestionRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logrus.Logger
}

// NewQuestionService wires the question bank. c may be nil to disable caching.
func NewQuestionService(repo pgrepo.QuestionRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) QuestionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	return &questionService{repo: repo, cache: c, ttl: ttl, log: log}
}

func (s *questionService) Create(ctx context.Context, text, category string) (*models.Question, error) {
	const op = "QuestionService.Create"

	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}
	now := time.Now().UTC()
	q := &models.Question{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  strings.TrimSpace(category),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create question", err)
	}
	s.invalidate(ctx)
	return q, nil
}

func (s *questionService) Get(ctx context.Context, id string) (*models.Question, error) {
	const op = "QuestionService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get question", err)
	}
	return q, nil
}

func (s *questionService) List(ctx context.Context, category string) ([]models.Question, error) {
	const op = "QuestionService.List"

	category = strings.TrimSpace(category)
	key := cache.QuestionsKey(category)
	if s.cache != nil {
		var cached []models.Question
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Debug("cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	out, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list questions", err)
	}
	if out == nil {
		out = []models.Question{}
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, s.ttl); err != nil {
			s.log.WithError(err).WithField("key", key).Debug("cache write failed")
		}
	}
	return out, nil
}

func (s *questionService) Update(ctx context.Context, id, text, category string) (*models.Question, error) {
	const op = "QuestionService.Update"

	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) != "" {
		q.Text = text
	}
	q.Category = strings.TrimSpace(category)
	q.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "question not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update question", err)
	}
	s.invalidate(ctx)
	return q, nil
}

// Delete removes a question from the bank. Sessions keep their snapshot.
func (s *questionService) Delete(ctx context.Context, id string) error {
	const op = "QuestionService.Delete"

	if id == "" {
		return utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "question not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete question", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *questionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelPrefix(ctx, "questions:"); err != nil {
		s.log.WithError(err).Warn("failed to invalidate question cache")
	}
}
