package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/providers/llm"
)

// resume text beyond this is cut before prompting
const maxResumeChars = 24000

var ErrUnparseable = errors.New("analysis: model output is not valid JSON")

const systemPrompt = `You are an experienced technical recruiter. You score resumes against job descriptions and answer with a single JSON object only.`

type ResumeAnalyzer struct {
	llm     llm.Provider
	timeout time.Duration
}

func NewResumeAnalyzer(p llm.Provider, timeout time.Duration) *ResumeAnalyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ResumeAnalyzer{llm: p, timeout: timeout}
}

func (a *ResumeAnalyzer) Provider() string { return a.llm.Name() }

// Analyze scores resumeText against jobDescription. raw is the model's
// unmodified answer, returned even when parsing fails.
func (a *ResumeAnalyzer) Analyze(ctx context.Context, jobDescription, resumeText string) (*models.Analysis, string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.llm.Complete(ctx, systemPrompt, BuildPrompt(jobDescription, resumeText))
	if err != nil {
		return nil, "", err
	}

	out, err := Parse(raw)
	if err != nil {
		return nil, raw, err
	}
	return out, raw, nil
}

func BuildPrompt(jobDescription, resumeText string) string {
	resumeText = strings.TrimSpace(resumeText)
	if len(resumeText) > maxResumeChars {
		cut := maxResumeChars
		for cut > 0 && !utf8.RuneStart(resumeText[cut]) {
			cut--
		}
		resumeText = resumeText[:cut]
	}

	var b strings.Builder
	b.WriteString("Evaluate the candidate's resume against the job description.\n\n")
	b.WriteString("JOB DESCRIPTION:\n")
	b.WriteString(strings.TrimSpace(jobDescription))
	b.WriteString("\n\nRESUME:\n")
	b.WriteString(resumeText)
	b.WriteString("\n\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "overallScore": <0-100>,
  "dimensions": {
    "technicalSkills": {"score": <0-100>, "level": "high|medium|low"},
    "experience": {"score": <0-100>, "level": "high|medium|low"},
    "education": {"score": <0-100>, "level": "high|medium|low"},
    "softSkills": {"score": <0-100>, "level": "high|medium|low"},
    "culturalFit": {"score": <0-100>, "level": "high|medium|low"}
  },
  "analysis": {
    "summary": "<two or three sentences>",
    "strengths": ["..."],
    "developmentAreas": ["..."],
    "matchedSkills": ["..."]
  }
}`)
	return b.String()
}

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// Parse tries the raw text as JSON first, then the outermost {...} found
// after stripping code fences. The result is normalized.
func Parse(raw string) (*models.Analysis, error) {
	var out models.Analysis
	err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out)
	if err != nil {
		candidate := raw
		if m := fenceRe.FindStringSubmatch(raw); m != nil {
			candidate = m[1]
		}
		obj := objectRe.FindString(candidate)
		if obj == "" {
			return nil, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
		}
		out = models.Analysis{}
		if err2 := json.Unmarshal([]byte(obj), &out); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err2)
		}
	}

	if !out.HasScores() {
		return nil, fmt.Errorf("%w: no scores in response", ErrUnparseable)
	}
	out.Normalize()
	return &out, nil
}
