package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/internal/events"
	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/providers/stt"
	"github.com/recruitgenius/backend/internal/queue"
	mongorepo "github.com/recruitgenius/backend/internal/repositories/mongo"
	pgrepo "github.com/recruitgenius/backend/internal/repositories/postgres"
	"github.com/recruitgenius/backend/internal/storage"
	"github.com/recruitgenius/backend/internal/utils"
)

type SessionService interface {
	CreateSession(ctx context.Context, candidateID string, questionIDs []string) (*models.Session, error)
	StartForCandidate(ctx context.Context, candidateID, category string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	QuestionAt(ctx context.Context, sessionID string, index int) (*QuestionView, error)

	RecordAnswer(ctx context.Context, sessionID, questionID string, audio AudioUpload) (*models.Recording, error)
	Advance(ctx context.Context, sessionID string) (*models.AdvanceResult, error)
	ProcessRecording(ctx context.Context, recordingID, audioURL string) (*models.Transcription, error)
	ListRecordings(ctx context.Context, sessionID string) ([]models.Recording, error)
}

// AudioUpload is one captured answer as received from the client.
type AudioUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// QuestionView is a read-only look at one position in a session.
type QuestionView struct {
	Index       int                     `json:"index"`
	Total       int                     `json:"total"`
	Progress    int                     `json:"progress"`
	IsCompleted bool                    `json:"is_completed"`
	Answered    bool                    `json:"answered"`
	Question    models.SnapshotQuestion `json:"question"`
}

type SessionDeps struct {
	Sessions   pgrepo.SessionRepository
	Questions  pgrepo.QuestionRepository
	Candidates pgrepo.CandidateRepository
	Recordings pgrepo.RecordingRepository
	Attempts   mongorepo.AttemptRepository // optional

	Store  storage.ObjectStore
	Bucket string
	STT    stt.Provider

	Queue  queue.Publisher // optional
	Events events.Notifier // optional
	Log    *logrus.Logger

	SignedURLTTL         time.Duration
	TranscriptionTimeout time.Duration
	MaxAudioBytes        int64
}

type sessionService struct {
	d   SessionDeps
	log *logrus.Logger
	now func() time.Time
}

func NewSessionService(d SessionDeps) SessionService {
	if d.Bucket == "" {
		d.Bucket = "recordings"
	}
	if d.TranscriptionTimeout <= 0 {
		d.TranscriptionTimeout = 45 * time.Second
	}
	if d.SignedURLTTL <= 0 {
		d.SignedURLTTL = 15 * time.Minute
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	return &sessionService{d: d, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *sessionService) CreateSession(ctx context.Context, candidateID string, questionIDs []string) (*models.Session, error) {
	const op = "SessionService.CreateSession"

	if candidateID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "candidate_id is required", nil)
	}
	ids := make([]string, 0, len(questionIDs))
	seen := map[string]struct{}{}
	for _, id := range questionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "question ids must not be blank", nil)
		}
		if _, dup := seen[id]; dup {
			return nil, utils.E(utils.CodeInvalidArgument, op, "question ids must be unique", nil)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one question is required", nil)
	}

	if _, err := s.d.Candidates.GetByID(ctx, candidateID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "candidate not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get candidate", err)
	}

	found, err := s.d.Questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load questions", err)
	}
	byID := make(map[string]models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, utils.E(utils.CodeNotFound, op, "question not found: "+id, nil)
		}
		ordered = append(ordered, q)
	}

	snap, err := models.NewQuestionSnapshot(ordered)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to snapshot questions", err)
	}

	sess := &models.Session{
		ID:               uuid.NewString(),
		CandidateID:      candidateID,
		Questions:        ids,
		QuestionSnapshot: snap,
		Progress:         0,
		IsCompleted:      false,
		CreatedAt:        s.now(),
	}
	if err := s.d.Sessions.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	if err := s.d.Candidates.SetSessionID(ctx, candidateID, sess.ID); err != nil {
		// the session is usable without the back-reference
		s.log.WithError(err).WithFields(logrus.Fields{
			"candidate_id": candidateID,
			"session_id":   sess.ID,
		}).Warn("failed to link session to candidate")
	}

	s.log.WithFields(logrus.Fields{
		"candidate_id": candidateID,
		"session_id":   sess.ID,
		"questions":    len(ids),
	}).Info("session created")
	return sess, nil
}

func (s *sessionService) StartForCandidate(ctx context.Context, candidateID, category string) (*models.Session, error) {
	const op = "SessionService.StartForCandidate"

	qs, err := s.d.Questions.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list questions", err)
	}
	if len(qs) == 0 {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "no questions available", nil)
	}
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return s.CreateSession(ctx, candidateID, ids)
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.d.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) QuestionAt(ctx context.Context, sessionID string, index int) (*QuestionView, error) {
	const op = "SessionService.QuestionAt"

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	total := len(sess.Questions)
	maxIndex := sess.Progress
	if maxIndex > total-1 {
		maxIndex = total - 1
	}
	if index < 0 || index > maxIndex {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question index out of range", nil)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "corrupt question snapshot", err)
	}
	q := models.SnapshotQuestion{ID: sess.Questions[index]}
	if index < len(snap) && snap[index].ID == q.ID {
		q = snap[index]
	}

	answered, err := s.d.Recordings.ExistsForQuestion(ctx, sess.ID, q.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to check recording", err)
	}

	return &QuestionView{
		Index:       index,
		Total:       total,
		Progress:    sess.Progress,
		IsCompleted: sess.IsCompleted,
		Answered:    answered,
		Question:    q,
	}, nil
}

func (s *sessionService) RecordAnswer(ctx context.Context, sessionID, questionID string, audio AudioUpload) (*models.Recording, error) {
	const op = "SessionService.RecordAnswer"

	if sessionID == "" || questionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and question_id are required", nil)
	}
	if audio.Body == nil || audio.Size == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is empty", nil)
	}
	if s.d.MaxAudioBytes > 0 && audio.Size > s.d.MaxAudioBytes {
		return nil, utils.E(utils.CodeTooLarge, op, "audio exceeds size limit", nil)
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsCompleted {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "session is already completed", nil)
	}
	idx := sess.IndexOf(questionID)
	if idx < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question is not part of this session", nil)
	}
	if idx > sess.Progress {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "question has not been reached yet", nil)
	}

	log := s.log.WithFields(logrus.Fields{
		"session_id":   sess.ID,
		"candidate_id": sess.CandidateID,
		"question_id":  questionID,
	})

	object := storage.RecordingObject(sess.CandidateID, questionID, storage.AudioExt(audio.FileName, audio.ContentType))
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	location, err := s.d.Store.Upload(ctx, s.d.Bucket, object, contentType, audio.Body, audio.Size)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload audio", err)
	}

	rec := &models.Recording{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		CandidateID: sess.CandidateID,
		QuestionID:  questionID,
		AudioPath:   object,
		AudioURL:    location,
		Transcript:  "",
		IsProcessed: false,
		CreatedAt:   s.now(),
	}
	if err := s.d.Recordings.Insert(ctx, rec); err != nil {
		if rmErr := s.d.Store.Remove(context.WithoutCancel(ctx), s.d.Bucket, object); rmErr != nil {
			log.WithError(rmErr).WithField("object", object).Warn("failed to remove orphaned audio")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save recording", err)
	}

	log.WithField("recording_id", rec.ID).Info("recording saved")
	s.publish(ctx, models.SessionEvent{
		Type:        models.EventRecordingSaved,
		SessionID:   sess.ID,
		RecordingID: rec.ID,
		QuestionID:  questionID,
	})

	if s.d.Queue != nil {
		if err := s.d.Queue.Publish(ctx, queue.Job{RecordingID: rec.ID, SessionID: sess.ID}); err != nil {
			log.WithError(err).WithField("recording_id", rec.ID).Warn("failed to enqueue transcription")
		}
	}
	return rec, nil
}

func (s *sessionService) Advance(ctx context.Context, sessionID string) (*models.AdvanceResult, error) {
	const op = "SessionService.Advance"

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsCompleted {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "session is already completed", nil)
	}
	total := len(sess.Questions)
	from := sess.Progress
	if from < 0 || from >= total {
		return nil, utils.E(utils.CodeInternal, op, "session progress out of range", nil)
	}

	ok, err := s.d.Recordings.ExistsForQuestion(ctx, sess.ID, sess.Questions[from])
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to check recording", err)
	}
	if !ok {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "current question has no saved recording", nil)
	}

	var (
		changed bool
		res     models.AdvanceResult
	)
	if from+1 == total {
		changed, err = s.d.Sessions.Complete(ctx, sess.ID, from, s.now())
		res.Completed = true
	} else {
		changed, err = s.d.Sessions.AdvanceProgress(ctx, sess.ID, from)
		next := from + 1
		res.NextIndex = &next
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update session", err)
	}
	if !changed {
		return nil, utils.E(utils.CodeConflict, op, "session was advanced concurrently", nil)
	}

	progress := from + 1
	ev := models.SessionEvent{Type: models.EventProgress, SessionID: sess.ID, Progress: &progress}
	if res.Completed {
		ev.Type = models.EventCompleted
	}
	s.publish(ctx, ev)

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"progress":   progress,
		"completed":  res.Completed,
	}).Info("session advanced")
	return &res, nil
}

func (s *sessionService) ProcessRecording(ctx context.Context, recordingID, audioURL string) (*models.Transcription, error) {
	const op = "SessionService.ProcessRecording"

	if recordingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording_id is required", nil)
	}
	rec, err := s.d.Recordings.GetByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get recording", err)
	}
	if rec.IsProcessed {
		return rec.Transcription(), nil
	}
	if s.d.STT == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription provider is not configured", nil)
	}

	log := s.log.WithFields(logrus.Fields{
		"recording_id": rec.ID,
		"session_id":   rec.SessionID,
		"provider":     s.d.STT.Name(),
	})

	url := strings.TrimSpace(audioURL)
	if url == "" {
		url, err = s.audioURL(ctx, rec)
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to resolve audio url", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.d.TranscriptionTimeout)
	start := time.Now()
	result, callErr := s.d.STT.Transcribe(callCtx, url)
	elapsed := time.Since(start)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(callErr, context.DeadlineExceeded)
	cancel()

	s.logAttempt(ctx, rec, callErr, elapsed)

	if callErr != nil {
		log.WithError(callErr).WithField("duration_ms", elapsed.Milliseconds()).Warn("transcription failed")
		s.publish(ctx, models.SessionEvent{
			Type:        models.EventTranscriptionFailed,
			SessionID:   rec.SessionID,
			RecordingID: rec.ID,
			QuestionID:  rec.QuestionID,
		})
		if timedOut {
			return nil, utils.E(utils.CodeTimeout, op, "transcription timed out", callErr)
		}
		return nil, utils.E(utils.CodeUpstream, op, "transcription service failed", callErr)
	}

	changed, err := s.d.Recordings.MarkProcessed(ctx, rec.ID, *result, s.now())
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store transcription", err)
	}
	if !changed {
		// another caller got there first; theirs is the stored result
		latest, err := s.d.Recordings.GetByID(ctx, rec.ID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to reload recording", err)
		}
		return latest.Transcription(), nil
	}

	log.WithField("duration_ms", elapsed.Milliseconds()).Info("transcription stored")
	s.publish(ctx, models.SessionEvent{
		Type:        models.EventTranscriptionDone,
		SessionID:   rec.SessionID,
		RecordingID: rec.ID,
		QuestionID:  rec.QuestionID,
	})
	return result, nil
}

// audioURL prefers a short-lived signed URL and falls back to the stored one.
func (s *sessionService) audioURL(ctx context.Context, rec *models.Recording) (string, error) {
	if rec.AudioPath != "" && s.d.Store != nil {
		u, err := s.d.Store.SignedGetURL(ctx, s.d.Bucket, rec.AudioPath, s.d.SignedURLTTL)
		if err == nil && u != "" {
			return u, nil
		}
		if rec.AudioURL == "" {
			return "", err
		}
		s.log.WithError(err).WithField("recording_id", rec.ID).Debug("signing failed, using stored url")
	}
	if rec.AudioURL == "" {
		return "", errors.New("recording has no audio location")
	}
	return rec.AudioURL, nil
}

func (s *sessionService) logAttempt(ctx context.Context, rec *models.Recording, callErr error, elapsed time.Duration) {
	if s.d.Attempts == nil {
		return
	}
	a := &models.TranscriptionAttempt{
		RecordingID: rec.ID,
		SessionID:   rec.SessionID,
		Provider:    s.d.STT.Name(),
		Status:      models.AttemptDone,
		DurationMS:  elapsed.Milliseconds(),
		Timestamp:   s.now(),
	}
	if callErr != nil {
		a.Status = models.AttemptFailed
		a.Error = callErr.Error()
	}
	if err := s.d.Attempts.Insert(context.WithoutCancel(ctx), a); err != nil {
		s.log.WithError(err).WithField("recording_id", rec.ID).Warn("failed to log transcription attempt")
	}
}

func (s *sessionService) ListRecordings(ctx context.Context, sessionID string) ([]models.Recording, error) {
	const op = "SessionService.ListRecordings"

	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	out, err := s.d.Recordings.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list recordings", err)
	}
	return out, nil
}

func (s *sessionService) publish(ctx context.Context, ev models.SessionEvent) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if err := s.d.Events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": ev.SessionID,
			"event":      ev.Type,
		}).Debug("event publish failed")
	}
}
