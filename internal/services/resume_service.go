package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/internal/extract"
	"github.com/recruitgenius/backend/internal/models"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/storage"
	"github.com/recruitgenius/backend/internal/utils"
)

type ResumeUpload struct {
	CandidateName  string
	CandidateEmail string
	FileName       string
	Size           int64
	Body           io.Reader
}

type ResumeService interface {
	Upload(ctx context.Context, in ResumeUpload) (*models.Resume, error)
	Get(ctx context.Context, id string) (*models.Resume, error)
	List(ctx context.Context, candidateID string) ([]models.Resume, error)
}

type resumeService struct {
	repo       pgrepo.ResumeRepository
	candidates CandidateService
	store      storage.ObjectStore
	bucket     string
	maxBytes   int64
	log        *logrus.Logger
}

func NewResumeService(repo pgrepo.ResumeRepository, candidates CandidateService, store storage.ObjectStore, bucket string, maxBytes int64, log *logrus.Logger) ResumeService {
	if bucket == "" {
		bucket = "resumes"
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if log == nil {
		log = logrus.New()
	}
	return &resumeService{repo: repo, candidates: candidates, store: store, bucket: bucket, maxBytes: maxBytes, log: log}
}

func (s *resumeService) Upload(ctx context.Context, in ResumeUpload) (*models.Resume, error) {
	const op = "ResumeService.Upload"

	if in.Body == nil || in.FileName == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is required", nil)
	}
	if in.Size > s.maxBytes {
		return nil, utils.E(utils.CodeTooLarge, op, "file too large", nil)
	}
	mimeType, ok := extract.Supported(in.FileName)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "only .pdf, .docx and .txt are allowed", nil)
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, utils.E(utils.CodeTooLarge, op, "file too large", nil)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}

	text, err := extract.FromFile(in.FileName, data)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return nil, utils.E(utils.CodeFailedPrecondition, op, "no text could be extracted from the document", err)
		}
		return nil, utils.E(utils.CodeInvalidArgument, op, "document could not be read", err)
	}

	cand, err := s.candidates.Register(ctx, in.CandidateName, in.CandidateEmail)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))
	object := storage.ResumeObject(cand.ID, ext)
	if _, err := s.store.Upload(ctx, s.bucket, object, mimeType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload file", err)
	}

	row := &models.Resume{
		ID:            uuid.NewString(),
		CandidateID:   cand.ID,
		FileName:      filepath.Base(in.FileName),
		FilePath:      object,
		FileSize:      len(data),
		MimeType:      mimeType,
		ExtractedText: text,
		UploadedAt:    time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), s.bucket, object); rmErr != nil {
			s.log.WithError(rmErr).WithField("object", object).Warn("failed to remove orphaned resume")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to persist resume metadata", err)
	}

	s.log.WithFields(logrus.Fields{
		"resume_id":    row.ID,
		"candidate_id": cand.ID,
		"chars":        len(text),
	}).Info("resume uploaded")
	return row, nil
}

func (s *resumeService) Get(ctx context.Context, id string) (*models.Resume, error) {
	const op = "ResumeService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "resume not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get resume", err)
	}
	return r, nil
}

func (s *resumeService) List(ctx context.Context, candidateID string) ([]models.Resume, error) {
	const op = "ResumeService.List"

	out, err := s.repo.List(ctx, candidateID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list resumes", err)
	}
	return out, nil
}
