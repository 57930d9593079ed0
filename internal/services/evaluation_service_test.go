package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/recruitgenius/backend/internal/analysis"
	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/utils"
)

type evalFixture struct {
	svc      EvaluationService
	sessions *sessionFixture
	evals    *fakeEvaluationRepo
	resumes  *fakeResumeRepo
	jobs     *fakeJobPostingRepo
	analyzer *fakeAnalyzer
	job      models.JobPosting
}

func newEvalFixture(t *testing.T) *evalFixture {
	t.Helper()
	f := &evalFixture{
		sessions: newSessionFixture(t, nil),
		evals:    newFakeEvaluationRepo(),
		resumes:  newFakeResumeRepo(),
		jobs:     newFakeJobPostingRepo(),
		analyzer: &fakeAnalyzer{},
	}
	f.job = models.JobPosting{ID: uuid.NewString(), Title: "Backend Engineer", Description: "Go, Postgres", CreatedAt: time.Now()}
	_ = f.jobs.Create(context.Background(), &f.job)
	f.sessions.questions.seed("Tell me about yourself", "")

	f.svc = NewEvaluationService(EvaluationDeps{
		Evaluations: f.evals,
		Resumes:     f.resumes,
		JobPostings: f.jobs,
		Sessions:    f.sessions.svc,
		Analyzer:    f.analyzer,
		Links:       fakeLinks{},
		Log:         quietLogger(),
		Concurrency: 2,
	})
	return f
}

func (f *evalFixture) resume(t *testing.T, text string) models.Resume {
	t.Helper()
	c := f.sessions.candidates.seed("Jane", uuid.NewString()+"@example.com")
	r := models.Resume{ID: uuid.NewString(), CandidateID: c.ID, FileName: "cv.txt", ExtractedText: text}
	_ = f.resumes.Insert(context.Background(), &r)
	return r
}

func TestAnalyzeStoresScores(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	r := f.resume(t, "Go developer, 5 years")

	var gotJD string
	f.analyzer.fn = func(jd, text string) (*models.Analysis, string, error) {
		gotJD = jd
		a := &models.Analysis{OverallScore: 82}
		a.Dimensions.TechnicalSkills = models.DimensionScore{Score: 90, Level: models.LevelHigh}
		a.Analysis.MatchedSkills = []string{"Go"}
		return a, "{}", nil
	}

	ev, err := f.svc.Analyze(ctx, r.ID, f.job.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(gotJD, "Backend Engineer") || !strings.Contains(gotJD, "Go, Postgres") {
		t.Fatalf("job description = %q", gotJD)
	}
	if ev.OverallScore != 82 || ev.TechnicalScore != 90 || ev.TechnicalLevel != models.LevelHigh {
		t.Fatalf("scores = %+v", ev)
	}
	if ev.Status != models.EvaluationPending || ev.CandidateID != r.CandidateID {
		t.Fatalf("evaluation = %+v", ev)
	}
	if len(ev.MatchedSkills) != 1 || len(ev.AnalysisJSON) == 0 {
		t.Fatalf("analysis not stored: %+v", ev)
	}
	if _, err := f.evals.GetByID(ctx, ev.ID); err != nil {
		t.Fatalf("not persisted: %v", err)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	r := f.resume(t, "text")

	if _, err := f.svc.Analyze(ctx, "missing", f.job.ID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("missing resume: got %v", err)
	}
	if _, err := f.svc.Analyze(ctx, r.ID, "missing"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("missing job: got %v", err)
	}

	empty := f.resume(t, "   ")
	if _, err := f.svc.Analyze(ctx, empty.ID, f.job.ID); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("empty text: got %v", err)
	}

	f.analyzer.fn = func(string, string) (*models.Analysis, string, error) {
		return nil, "not json", analysis.ErrUnparseable
	}
	if _, err := f.svc.Analyze(ctx, r.ID, f.job.ID); !utils.IsCode(err, utils.CodeUpstream) {
		t.Fatalf("unparseable: got %v", err)
	}

	f.analyzer.fn = func(string, string) (*models.Analysis, string, error) {
		return nil, "", context.DeadlineExceeded
	}
	if _, err := f.svc.Analyze(ctx, r.ID, f.job.ID); !utils.IsCode(err, utils.CodeTimeout) {
		t.Fatalf("deadline: got %v", err)
	}
	if len(f.evals.rows) != 0 {
		t.Fatalf("failed analyses must not store rows")
	}
}

func TestAnalyzeBatchIsolatesFailures(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	good1 := f.resume(t, "good one")
	bad := f.resume(t, "bad")
	good2 := f.resume(t, "good two")

	f.analyzer.fn = func(_, text string) (*models.Analysis, string, error) {
		if text == "bad" {
			return nil, "", errors.New("model refused")
		}
		return &models.Analysis{OverallScore: 70}, "{}", nil
	}

	sum, err := f.svc.AnalyzeBatch(ctx, f.job.ID, nil)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	for _, it := range sum.Items {
		switch it.ResumeID {
		case good1.ID, good2.ID:
			if it.Error != "" || it.EvaluationID == "" {
				t.Fatalf("item %+v", it)
			}
		case bad.ID:
			if it.Error == "" {
				t.Fatalf("bad item has no error")
			}
		default:
			t.Fatalf("unexpected item %+v", it)
		}
	}

	if _, err := f.svc.AnalyzeBatch(ctx, "missing", nil); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("missing job: got %v", err)
	}
}

func TestSelectForInterviewIsIdempotent(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	r := f.resume(t, "text")
	ev, err := f.svc.Analyze(ctx, r.ID, f.job.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	first, err := f.svc.SelectForInterview(ctx, ev.ID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if first.Session == nil || first.Link.Token == "" || !strings.Contains(first.Link.URL, first.Link.Token) {
		t.Fatalf("selection = %+v", first)
	}
	if !first.Evaluation.SelectedForInterview || first.Evaluation.Status != models.EvaluationInterviewing {
		t.Fatalf("evaluation not marked: %+v", first.Evaluation)
	}

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sel, err := f.svc.SelectForInterview(ctx, ev.ID)
			if err == nil {
				ids[i] = sel.Session.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id != first.Session.ID {
			t.Fatalf("reselect produced session %q, want %q", id, first.Session.ID)
		}
	}

	sessions, _ := f.sessions.sessions.ListByCandidate(ctx, r.CandidateID)
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
}

func TestSelectForInterviewConcurrentFirstSelection(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	r := f.resume(t, "text")
	ev, _ := f.svc.Analyze(ctx, r.ID, f.job.ID)

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sel, err := f.svc.SelectForInterview(ctx, ev.ID); err == nil {
				ids[i] = sel.Session.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id == "" || id != ids[0] {
			t.Fatalf("session ids diverged: %v", ids)
		}
	}
	sessions, _ := f.sessions.sessions.ListByCandidate(ctx, r.CandidateID)
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
}

func TestUpdateEvaluation(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	r := f.resume(t, "text")
	ev, _ := f.svc.Analyze(ctx, r.ID, f.job.ID)

	bogus := "hired"
	if _, err := f.svc.Update(ctx, ev.ID, models.EvaluationUpdate{Status: &bogus}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("bogus status: got %v", err)
	}

	status := " Shortlisted "
	remarks := "strong Go background"
	out, err := f.svc.Update(ctx, ev.ID, models.EvaluationUpdate{Status: &status, Remarks: &remarks})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Status != models.EvaluationShortlisted || out.Remarks != remarks {
		t.Fatalf("updated = %+v", out)
	}

	yes := true
	out, err = f.svc.Update(ctx, ev.ID, models.EvaluationUpdate{SelectedForInterview: &yes})
	if err != nil {
		t.Fatalf("select via update: %v", err)
	}
	if !out.SelectedForInterview || out.SessionID == nil {
		t.Fatalf("not selected: %+v", out)
	}

	if _, err := f.svc.Update(ctx, "missing", models.EvaluationUpdate{Remarks: &remarks}); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("missing: got %v", err)
	}
}

func TestBulkSetStatusTallies(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Analyze(ctx, f.resume(t, "a").ID, f.job.ID)
	b, _ := f.svc.Analyze(ctx, f.resume(t, "b").ID, f.job.ID)

	res, err := f.svc.BulkSetStatus(ctx, []string{a.ID, "missing", b.ID}, "rejected")
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Updated != 2 || res.Failed != 1 || res.Errors["missing"] == "" {
		t.Fatalf("result = %+v", res)
	}
	got, _ := f.svc.Get(ctx, b.ID)
	if got.Status != models.EvaluationRejected {
		t.Fatalf("status = %q", got.Status)
	}

	if _, err := f.svc.BulkSetStatus(ctx, []string{a.ID}, "nope"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("bad status: got %v", err)
	}
}
