package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/internal/cache"
	"github.com/recruitgenius/backend/internal/export"
	"github.com/recruitgenius/backend/internal/models"
	mongorepo "github.com/recruitgenius/backend/internal/repositories/mongo"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/utils"
)

// RecordingView is a recording joined with the question it answers.
type RecordingView struct {
	models.Recording
	QuestionText string `json:"question_text"`
}

type SessionDetail struct {
	Session    *models.Session           `json:"session"`
	Status     string                    `json:"status"`
	Questions  []models.SnapshotQuestion `json:"questions"`
	Recordings []RecordingView           `json:"recordings"`
}

type CandidateDetail struct {
	Candidate   *models.Candidate         `json:"candidate"`
	Sessions    []models.Session          `json:"sessions"`
	Recordings  []RecordingView           `json:"recordings"`
	Evaluations []models.ResumeEvaluation `json:"evaluations"`
}

type AdminService interface {
	ListEvaluations(ctx context.Context, f models.EvaluationFilter) ([]models.EvaluationRow, error)
	ExportEvaluations(ctx context.Context, f models.EvaluationFilter) ([]byte, error)
	CandidateDetail(ctx context.Context, candidateID string) (*CandidateDetail, error)
	SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error)
	IssueInterviewLink(ctx context.Context, candidateID string) (*InterviewLink, error)
	RecordingAttempts(ctx context.Context, recordingID string) ([]models.TranscriptionAttempt, error)
	ProcessRecording(ctx context.Context, recordingID, audioURL string) (*models.Transcription, error)
}

type AdminDeps struct {
	Evaluations pgrepo.EvaluationRepository
	Candidates  pgrepo.CandidateRepository
	Sessions    pgrepo.SessionRepository
	Recordings  pgrepo.RecordingRepository
	Questions   pgrepo.QuestionRepository
	Attempts    mongorepo.AttemptRepository // optional

	Orchestrator SessionService
	Links        LinkIssuer
	Cache        cache.Cache // optional
	ListTTL      time.Duration
	Log          *logrus.Logger
}

type adminService struct {
	d   AdminDeps
	log *logrus.Logger
}

func NewAdminService(d AdminDeps) AdminService {
	if d.ListTTL <= 0 {
		d.ListTTL = 30 * time.Second
	}
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	return &adminService{d: d, log: log}
}

func evaluationsKey(f models.EvaluationFilter) string {
	b, _ := json.Marshal(f)
	sum := sha1.Sum(b)
	return cache.KeyEvaluationsPref + hex.EncodeToString(sum[:])
}

func (s *adminService) ListEvaluations(ctx context.Context, f models.EvaluationFilter) ([]models.EvaluationRow, error) {
	const op = "AdminService.ListEvaluations"

	if f.Status != "" && !models.ValidEvaluationStatus(f.Status) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status filter", nil)
	}

	key := evaluationsKey(f)
	if s.d.Cache != nil {
		var cached []models.EvaluationRow
		if hit, err := s.d.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := s.d.Evaluations.ListRows(ctx, f)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list evaluations", err)
	}
	if rows == nil {
		rows = []models.EvaluationRow{}
	}
	if s.d.Cache != nil {
		if err := s.d.Cache.SetJSON(ctx, key, rows, s.d.ListTTL); err != nil {
			s.log.WithError(err).Debug("cache write failed")
		}
	}
	return rows, nil
}

func (s *adminService) ExportEvaluations(ctx context.Context, f models.EvaluationFilter) ([]byte, error) {
	const op = "AdminService.ExportEvaluations"

	if f.Limit <= 0 {
		f.Limit = 500
	}
	rows, err := s.ListEvaluations(ctx, f)
	if err != nil {
		return nil, err
	}
	out, err := export.EvaluationsXLSX(rows, time.Now())
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build workbook", err)
	}
	return out, nil
}

func (s *adminService) CandidateDetail(ctx context.Context, candidateID string) (*CandidateDetail, error) {
	const op = "AdminService.CandidateDetail"

	if candidateID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "candidate_id is required", nil)
	}
	cand, err := s.d.Candidates.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "candidate not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get candidate", err)
	}

	sessions, err := s.d.Sessions.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	recs, err := s.d.Recordings.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list recordings", err)
	}
	evals, err := s.d.Evaluations.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list evaluations", err)
	}

	texts := map[string]string{}
	for i := range sessions {
		snap, err := sessions[i].Snapshot()
		if err != nil {
			s.log.WithError(err).WithField("session_id", sessions[i].ID).Warn("corrupt question snapshot")
			continue
		}
		for _, q := range snap {
			texts[q.ID] = q.Text
		}
	}
	views, err := s.recordingViews(ctx, recs, texts)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load questions", err)
	}

	if sessions == nil {
		sessions = []models.Session{}
	}
	if evals == nil {
		evals = []models.ResumeEvaluation{}
	}
	return &CandidateDetail{Candidate: cand, Sessions: sessions, Recordings: views, Evaluations: evals}, nil
}

func (s *adminService) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	const op = "AdminService.SessionDetail"

	sess, err := s.d.Orchestrator.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "corrupt question snapshot", err)
	}
	recs, err := s.d.Recordings.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list recordings", err)
	}

	texts := make(map[string]string, len(snap))
	for _, q := range snap {
		texts[q.ID] = q.Text
	}
	views, err := s.recordingViews(ctx, recs, texts)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load questions", err)
	}
	if snap == nil {
		snap = []models.SnapshotQuestion{}
	}
	return &SessionDetail{Session: sess, Status: sess.Status(), Questions: snap, Recordings: views}, nil
}

// recordingViews fills question text from known snapshots first, then the bank.
func (s *adminService) recordingViews(ctx context.Context, recs []models.Recording, texts map[string]string) ([]RecordingView, error) {
	var missing []string
	for _, r := range recs {
		if _, ok := texts[r.QuestionID]; !ok {
			missing = append(missing, r.QuestionID)
		}
	}
	if len(missing) > 0 {
		qs, err := s.d.Questions.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			texts[q.ID] = q.Text
		}
	}

	out := make([]RecordingView, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecordingView{Recording: r, QuestionText: texts[r.QuestionID]})
	}
	return out, nil
}

func (s *adminService) IssueInterviewLink(ctx context.Context, candidateID string) (*InterviewLink, error) {
	const op = "AdminService.IssueInterviewLink"

	if candidateID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "candidate_id is required", nil)
	}
	cand, err := s.d.Candidates.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "candidate not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get candidate", err)
	}

	sessionID := ""
	if cand.SessionID != nil {
		sessionID = *cand.SessionID
	} else {
		sessions, err := s.d.Sessions.ListByCandidate(ctx, candidateID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
		}
		if len(sessions) > 0 {
			sessionID = sessions[len(sessions)-1].ID
		}
	}
	if sessionID == "" {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "candidate has no interview session", nil)
	}

	token, exp, err := s.d.Links.Issue(cand.ID, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue interview link", err)
	}
	return &InterviewLink{Token: token, URL: s.d.Links.URL(token), ExpiresAt: exp}, nil
}

func (s *adminService) RecordingAttempts(ctx context.Context, recordingID string) ([]models.TranscriptionAttempt, error) {
	const op = "AdminService.RecordingAttempts"

	if recordingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording_id is required", nil)
	}
	if _, err := s.d.Recordings.GetByID(ctx, recordingID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get recording", err)
	}
	if s.d.Attempts == nil {
		return []models.TranscriptionAttempt{}, nil
	}
	out, err := s.d.Attempts.ListByRecording(ctx, recordingID, 50)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to read attempt log", err)
	}
	return out, nil
}

// ProcessRecording is the manual admin trigger for transcription.
func (s *adminService) ProcessRecording(ctx context.Context, recordingID, audioURL string) (*models.Transcription, error) {
	return s.d.Orchestrator.ProcessRecording(ctx, recordingID, audioURL)
}
