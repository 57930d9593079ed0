package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/queue"
	"github.com/recruitgenius/backend/internal/storage"
	"github.com/recruitgenius/backend/internal/utils"
)

// ---- questions ----

type fakeQuestionRepo struct {
	mu    sync.Mutex
	rows  map[string]models.Question
	order []string
	lists int
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{rows: map[string]models.Question{}}
}

func (r *fakeQuestionRepo) Create(_ context.Context, q *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[q.ID] = *q
	r.order = append(r.order, q.ID)
	return nil
}

func (r *fakeQuestionRepo) GetByID(_ context.Context, id string) (*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &q, nil
}

func (r *fakeQuestionRepo) GetByIDs(_ context.Context, ids []string) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Question
	for _, id := range ids {
		if q, ok := r.rows[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) List(_ context.Context, category string) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	var out []models.Question
	for _, id := range r.order {
		q, ok := r.rows[id]
		if !ok {
			continue
		}
		if category != "" && q.Category != category {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *fakeQuestionRepo) Update(_ context.Context, q *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[q.ID]; !ok {
		return utils.ErrNotFound
	}
	r.rows[q.ID] = *q
	return nil
}

func (r *fakeQuestionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return utils.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeQuestionRepo) seed(text, category string) models.Question {
	q := models.Question{ID: uuid.NewString(), Text: text, Category: category, CreatedAt: time.Now().UTC()}
	_ = r.Create(context.Background(), &q)
	return q
}

// ---- candidates ----

type fakeCandidateRepo struct {
	mu   sync.Mutex
	rows map[string]models.Candidate
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{rows: map[string]models.Candidate{}}
}

func (r *fakeCandidateRepo) Create(_ context.Context, c *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = *c
	return nil
}

func (r *fakeCandidateRepo) GetByID(_ context.Context, id string) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCandidateRepo) GetByEmail(_ context.Context, email string) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeCandidateRepo) SetSessionID(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	c.SessionID = &sessionID
	r.rows[id] = c
	return nil
}

func (r *fakeCandidateRepo) seed(name, email string) models.Candidate {
	c := models.Candidate{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: time.Now().UTC()}
	_ = r.Create(context.Background(), &c)
	return c
}

// ---- sessions ----

type fakeSessionRepo struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: map[string]models.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSessionRepo) ListByCandidate(_ context.Context, candidateID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.rows {
		if s.CandidateID == candidateID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) AdvanceProgress(_ context.Context, id string, from int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.Progress != from || s.IsCompleted || from+1 >= len(s.Questions) {
		return false, nil
	}
	s.Progress = from + 1
	r.rows[id] = s
	return true, nil
}

func (r *fakeSessionRepo) Complete(_ context.Context, id string, from int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.Progress != from || s.IsCompleted || from+1 != len(s.Questions) {
		return false, nil
	}
	s.Progress = from + 1
	s.IsCompleted = true
	s.CompletedAt = &at
	r.rows[id] = s
	return true, nil
}

// ---- recordings ----

type fakeRecordingRepo struct {
	mu        sync.Mutex
	rows      map[string]models.Recording
	insertErr error
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{rows: map[string]models.Recording{}}
}

func (r *fakeRecordingRepo) Insert(_ context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.rows[rec.ID] = *rec
	return nil
}

func (r *fakeRecordingRepo) GetByID(_ context.Context, id string) (*models.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &rec, nil
}

func (r *fakeRecordingRepo) ExistsForQuestion(_ context.Context, sessionID, questionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.SessionID == sessionID && rec.QuestionID == questionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRecordingRepo) list(match func(models.Recording) bool) []models.Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Recording
	for _, rec := range r.rows {
		if match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeRecordingRepo) ListBySession(_ context.Context, sessionID string) ([]models.Recording, error) {
	return r.list(func(rec models.Recording) bool { return rec.SessionID == sessionID }), nil
}

func (r *fakeRecordingRepo) ListByCandidate(_ context.Context, candidateID string) ([]models.Recording, error) {
	return r.list(func(rec models.Recording) bool { return rec.CandidateID == candidateID }), nil
}

func (r *fakeRecordingRepo) MarkProcessed(_ context.Context, id string, t models.Transcription, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok || rec.IsProcessed {
		return false, nil
	}
	rec.Transcript = t.Transcript
	rec.SentimentScore = t.SentimentScore
	rec.SentimentType = t.SentimentType
	rec.IsProcessed = true
	rec.ProcessedAt = &at
	r.rows[id] = rec
	return true, nil
}

// ---- object store ----

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	signErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) key(bucket, object string) string { return bucket + "/" + object }

func (s *fakeStore) Upload(_ context.Context, bucket, object, _ string, r io.Reader, _ int64) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[s.key(bucket, object)] = b
	return "https://store.test/" + s.key(bucket, object), nil
}

func (s *fakeStore) SignedGetURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://store.test/" + s.key(bucket, object) + "?sig=1", nil
}

func (s *fakeStore) List(_ context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range s.objects {
		if strings.HasPrefix(k, s.key(bucket, prefix)) {
			out = append(out, storage.ObjectInfo{Key: strings.TrimPrefix(k, bucket+"/"), Size: int64(len(v))})
		}
	}
	return out, nil
}

func (s *fakeStore) Remove(_ context.Context, bucket, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(bucket, object)
	if _, ok := s.objects[k]; !ok {
		return utils.ErrNotFound
	}
	delete(s.objects, k)
	return nil
}

func (s *fakeStore) EnsureBucket(context.Context, string) (bool, error) { return false, nil }
func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) get(bucket, object string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[s.key(bucket, object)]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ---- speech provider ----

type fakeSTT struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, url string) (*models.Transcription, error)
}

func (f *fakeSTT) Name() string { return "fake" }
func (f *fakeSTT) Close() error { return nil }

func (f *fakeSTT) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSTT) Transcribe(ctx context.Context, url string) (*models.Transcription, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, url)
	}
	score := 0.4
	typ := "positive"
	return &models.Transcription{Transcript: "hello world", SentimentScore: &score, SentimentType: &typ}, nil
}

// ---- attempt log ----

type fakeAttemptRepo struct {
	mu   sync.Mutex
	rows []models.TranscriptionAttempt
}

func (r *fakeAttemptRepo) Insert(_ context.Context, a *models.TranscriptionAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *a)
	return nil
}

func (r *fakeAttemptRepo) ListByRecording(_ context.Context, recordingID string, _ int64) ([]models.TranscriptionAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.TranscriptionAttempt{}
	for _, a := range r.rows {
		if a.RecordingID == recordingID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---- queue and events ----

type fakePublisher struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, j queue.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, j)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (n *fakeNotifier) Publish(_ context.Context, ev models.SessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// ---- resumes, postings, evaluations ----

type fakeResumeRepo struct {
	mu   sync.Mutex
	rows map[string]models.Resume
	ids  []string
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{rows: map[string]models.Resume{}}
}

func (r *fakeResumeRepo) Insert(_ context.Context, res *models.Resume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[res.ID] = *res
	r.ids = append(r.ids, res.ID)
	return nil
}

func (r *fakeResumeRepo) GetByID(_ context.Context, id string) (*models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &res, nil
}

func (r *fakeResumeRepo) List(_ context.Context, candidateID string) ([]models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Resume
	for _, id := range r.ids {
		res := r.rows[id]
		if candidateID == "" || res.CandidateID == candidateID {
			res.ExtractedText = ""
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResumeRepo) ListIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...), nil
}

type fakeJobPostingRepo struct {
	mu   sync.Mutex
	rows map[string]models.JobPosting
}

func newFakeJobPostingRepo() *fakeJobPostingRepo {
	return &fakeJobPostingRepo{rows: map[string]models.JobPosting{}}
}

func (r *fakeJobPostingRepo) Create(_ context.Context, j *models.JobPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[j.ID] = *j
	return nil
}

func (r *fakeJobPostingRepo) GetByID(_ context.Context, id string) (*models.JobPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &j, nil
}

func (r *fakeJobPostingRepo) List(context.Context) ([]models.JobPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobPosting
	for _, j := range r.rows {
		out = append(out, j)
	}
	return out, nil
}

type fakeEvaluationRepo struct {
	mu       sync.Mutex
	rows     map[string]models.ResumeEvaluation
	listRows int
}

func newFakeEvaluationRepo() *fakeEvaluationRepo {
	return &fakeEvaluationRepo{rows: map[string]models.ResumeEvaluation{}}
}

func (r *fakeEvaluationRepo) Insert(_ context.Context, e *models.ResumeEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[e.ID] = *e
	return nil
}

func (r *fakeEvaluationRepo) GetByID(_ context.Context, id string) (*models.ResumeEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &e, nil
}

func (r *fakeEvaluationRepo) ListByCandidate(_ context.Context, candidateID string) ([]models.ResumeEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ResumeEvaluation
	for _, e := range r.rows {
		if e.CandidateID == candidateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEvaluationRepo) ListRows(_ context.Context, f models.EvaluationFilter) ([]models.EvaluationRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listRows++
	var out []models.EvaluationRow
	for _, e := range r.rows {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, models.EvaluationRow{ResumeEvaluation: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverallScore > out[j].OverallScore })
	return out, nil
}

func (r *fakeEvaluationRepo) UpdateReview(_ context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	if v, ok := fields["status"].(string); ok {
		e.Status = v
	}
	if v, ok := fields["remarks"].(string); ok {
		e.Remarks = v
	}
	if v, ok := fields["selected_for_interview"].(bool); ok {
		e.SelectedForInterview = v
	}
	r.rows[id] = e
	return nil
}

func (r *fakeEvaluationRepo) AttachSession(_ context.Context, id, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || e.SessionID != nil {
		return false, nil
	}
	e.SessionID = &sessionID
	e.SelectedForInterview = true
	e.Status = models.EvaluationInterviewing
	r.rows[id] = e
	return true, nil
}

// ---- analyzer and links ----

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(jd, text string) (*models.Analysis, string, error)
}

func (a *fakeAnalyzer) Analyze(_ context.Context, jd, text string) (*models.Analysis, string, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.fn != nil {
		return a.fn(jd, text)
	}
	return &models.Analysis{OverallScore: 80}, `{"overallScore":80}`, nil
}

type fakeLinks struct{}

func (fakeLinks) Issue(candidateID, sessionID string) (string, time.Time, error) {
	if candidateID == "" || sessionID == "" {
		return "", time.Time{}, errors.New("missing ids")
	}
	return "tok-" + candidateID + "-" + sessionID, time.Now().Add(time.Hour), nil
}

func (fakeLinks) URL(token string) string { return "https://app.test/interview?token=" + token }
