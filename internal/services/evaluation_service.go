package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/recruitgenius/backend/internal/analysis"
	"github.com/recruitgenius/backend/internal/cache"
	"github.com/recruitgenius/backend/internal/models"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/utils"
)

// Analyzer scores resume text against a job description.
type Analyzer interface {
	Analyze(ctx context.Context, jobDescription, resumeText string) (*models.Analysis, string, error)
}

// LinkIssuer signs interview links for a candidate's session.
type LinkIssuer interface {
	Issue(candidateID, sessionID string) (string, time.Time, error)
	URL(token string) string
}

type InterviewLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type InterviewSelection struct {
	Evaluation *models.ResumeEvaluation `json:"evaluation"`
	Session    *models.Session          `json:"session"`
	Link       InterviewLink            `json:"link"`
}

type BatchItem struct {
	ResumeID     string  `json:"resume_id"`
	EvaluationID string  `json:"evaluation_id,omitempty"`
	OverallScore float64 `json:"overall_score,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type BatchSummary struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

type BulkResult struct {
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type EvaluationService interface {
	Analyze(ctx context.Context, resumeID, jobPostingID string) (*models.ResumeEvaluation, error)
	AnalyzeBatch(ctx context.Context, jobPostingID string, resumeIDs []string) (*BatchSummary, error)
	Get(ctx context.Context, id string) (*models.ResumeEvaluation, error)
	Update(ctx context.Context, id string, upd models.EvaluationUpdate) (*models.ResumeEvaluation, error)
	BulkSetStatus(ctx context.Context, ids []string, status string) (*BulkResult, error)
	SelectForInterview(ctx context.Context, id string) (*InterviewSelection, error)
}

type EvaluationDeps struct {
	Evaluations pgrepo.EvaluationRepository
	Resumes     pgrepo.ResumeRepository
	JobPostings pgrepo.JobPostingRepository
	Sessions    SessionService
	Analyzer    Analyzer
	Links       LinkIssuer
	Cache       cache.Cache // optional
	Log         *logrus.Logger
	Concurrency int
}

type evaluationService struct {
	d   EvaluationDeps
	log *logrus.Logger

	// serializes selections within this process; AttachSession guards across processes
	selectMu sync.Mutex
}

func NewEvaluationService(d EvaluationDeps) EvaluationService {
	if d.Concurrency <= 0 {
		d.Concurrency = 3
	}
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	return &evaluationService{d: d, log: log}
}

func (s *evaluationService) Analyze(ctx context.Context, resumeID, jobPostingID string) (*models.ResumeEvaluation, error) {
	const op = "EvaluationService.Analyze"

	if resumeID == "" || jobPostingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume_id and job_posting_id are required", nil)
	}
	resume, err := s.d.Resumes.GetByID(ctx, resumeID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "resume not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get resume", err)
	}
	job, err := s.d.JobPostings.GetByID(ctx, jobPostingID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job posting not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get job posting", err)
	}
	if strings.TrimSpace(resume.ExtractedText) == "" {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "resume has no extracted text", nil)
	}

	log := s.log.WithFields(logrus.Fields{
		"resume_id":      resume.ID,
		"job_posting_id": job.ID,
	})

	start := time.Now()
	result, raw, err := s.d.Analyzer.Analyze(ctx, job.Title+"\n\n"+job.Description, resume.ExtractedText)
	if err != nil {
		log.WithError(err).WithField("raw_len", len(raw)).Warn("resume analysis failed")
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, utils.E(utils.CodeTimeout, op, "analysis timed out", err)
		case errors.Is(err, analysis.ErrUnparseable):
			return nil, utils.E(utils.CodeUpstream, op, "analysis response could not be parsed", err)
		default:
			return nil, utils.E(utils.CodeUpstream, op, "analysis service failed", err)
		}
	}

	blob, err := json.Marshal(result)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode analysis", err)
	}

	now := time.Now().UTC()
	ev := &models.ResumeEvaluation{
		ID:           uuid.NewString(),
		ResumeID:     resume.ID,
		JobPostingID: job.ID,
		CandidateID:  resume.CandidateID,
		AnalysisJSON: blob,
		Status:       models.EvaluationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ev.ApplyAnalysis(result)

	if err := s.d.Evaluations.Insert(ctx, ev); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store evaluation", err)
	}
	s.invalidate(ctx)

	log.WithFields(logrus.Fields{
		"evaluation_id": ev.ID,
		"overall_score": ev.OverallScore,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("resume analyzed")
	return ev, nil
}

func (s *evaluationService) AnalyzeBatch(ctx context.Context, jobPostingID string, resumeIDs []string) (*BatchSummary, error) {
	const op = "EvaluationService.AnalyzeBatch"

	if jobPostingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "job_posting_id is required", nil)
	}
	if _, err := s.d.JobPostings.GetByID(ctx, jobPostingID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job posting not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get job posting", err)
	}

	ids := resumeIDs
	if len(ids) == 0 {
		all, err := s.d.Resumes.ListIDs(ctx)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to list resumes", err)
		}
		ids = all
	}

	items := make([]BatchItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.d.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			items[i].ResumeID = id
			ev, err := s.Analyze(gctx, id, jobPostingID)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].EvaluationID = ev.ID
			items[i].OverallScore = ev.OverallScore
			return nil
		})
	}
	_ = g.Wait()

	sum := &BatchSummary{Total: len(items), Items: items}
	for _, it := range items {
		if it.Error != "" {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	s.log.WithFields(logrus.Fields{
		"job_posting_id": jobPostingID,
		"total":          sum.Total,
		"succeeded":      sum.Succeeded,
		"failed":         sum.Failed,
	}).Info("batch analysis finished")
	return sum, nil
}

func (s *evaluationService) Get(ctx context.Context, id string) (*models.ResumeEvaluation, error) {
	const op = "EvaluationService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	ev, err := s.d.Evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "evaluation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get evaluation", err)
	}
	return ev, nil
}

func (s *evaluationService) Update(ctx context.Context, id string, upd models.EvaluationUpdate) (*models.ResumeEvaluation, error) {
	const op = "EvaluationService.Update"

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*upd.Status))
		if !models.ValidEvaluationStatus(st) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status", nil)
		}
		fields["status"] = st
	}
	if upd.Remarks != nil {
		fields["remarks"] = *upd.Remarks
	}
	if upd.SelectedForInterview != nil && !*upd.SelectedForInterview {
		fields["selected_for_interview"] = false
	}

	if len(fields) > 0 {
		if err := s.d.Evaluations.UpdateReview(ctx, id, fields); err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, utils.E(utils.CodeNotFound, op, "evaluation not found", err)
			}
			return nil, utils.E(utils.CodeInternal, op, "failed to update evaluation", err)
		}
		s.invalidate(ctx)
	}

	if upd.SelectedForInterview != nil && *upd.SelectedForInterview {
		sel, err := s.SelectForInterview(ctx, id)
		if err != nil {
			return nil, err
		}
		return sel.Evaluation, nil
	}
	return s.Get(ctx, id)
}

func (s *evaluationService) BulkSetStatus(ctx context.Context, ids []string, status string) (*BulkResult, error) {
	const op = "EvaluationService.BulkSetStatus"

	status = strings.ToLower(strings.TrimSpace(status))
	if !models.ValidEvaluationStatus(status) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status", nil)
	}
	if len(ids) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "ids are required", nil)
	}

	res := &BulkResult{Errors: map[string]string{}}
	for _, id := range ids {
		err := s.d.Evaluations.UpdateReview(ctx, id, map[string]any{"status": status})
		if err != nil {
			res.Failed++
			res.Errors[id] = err.Error()
			s.log.WithError(err).WithField("evaluation_id", id).Warn("bulk status update failed")
			continue
		}
		res.Updated++
	}
	if res.Updated > 0 {
		s.invalidate(ctx)
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// SelectForInterview is idempotent: an evaluation that already has a session
// gets a fresh link for that session instead of a second session.
func (s *evaluationService) SelectForInterview(ctx context.Context, id string) (*InterviewSelection, error) {
	const op = "EvaluationService.SelectForInterview"

	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.CandidateID == "" {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "evaluation has no candidate", nil)
	}

	if ev.SessionID == nil {
		sess, err := s.d.Sessions.StartForCandidate(ctx, ev.CandidateID, "")
		if err != nil {
			return nil, err
		}
		attached, err := s.d.Evaluations.AttachSession(ctx, ev.ID, sess.ID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to link session", err)
		}
		if !attached {
			s.log.WithFields(logrus.Fields{
				"evaluation_id": ev.ID,
				"session_id":    sess.ID,
			}).Warn("evaluation was selected concurrently; new session left unused")
		}
		s.invalidate(ctx)
		if ev, err = s.Get(ctx, id); err != nil {
			return nil, err
		}
		if ev.SessionID == nil {
			return nil, utils.E(utils.CodeInternal, op, "session link missing after select", nil)
		}
	}

	sess, err := s.d.Sessions.Get(ctx, *ev.SessionID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.d.Links.Issue(ev.CandidateID, sess.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue interview link", err)
	}

	return &InterviewSelection{
		Evaluation: ev,
		Session:    sess,
		Link:       InterviewLink{Token: token, URL: s.d.Links.URL(token), ExpiresAt: exp},
	}, nil
}

func (s *evaluationService) invalidate(ctx context.Context) {
	if s.d.Cache == nil {
		return
	}
	if err := s.d.Cache.DelPrefix(ctx, cache.KeyEvaluationsPref); err != nil {
		s.log.WithError(err).Warn("failed to invalidate evaluation cache")
	}
}
