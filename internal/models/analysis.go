package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Analysis is the validated shape of an LLM resume evaluation.
type Analysis struct {
	OverallScore float64        `json:"overallScore"`
	Dimensions   Dimensions     `json:"dimensions"`
	Analysis     AnalysisDetail `json:"analysis"`
}

type AnalysisDetail struct {
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	DevelopmentAreas []string `json:"developmentAreas"`
	MatchedSkills    []string `json:"matchedSkills"`
}

type Dimensions struct {
	TechnicalSkills DimensionScore `json:"technicalSkills"`
	Experience      DimensionScore `json:"experience"`
	Education       DimensionScore `json:"education"`
	SoftSkills      DimensionScore `json:"softSkills"`
	CulturalFit     DimensionScore `json:"culturalFit"`
}

// DimensionScore accepts either a bare number or {score, level, comment}.
type DimensionScore struct {
	Score   float64 `json:"score"`
	Level   string  `json:"level"`
	Comment string  `json:"comment,omitempty"`

	present bool
}

func (d *DimensionScore) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '{':
		var raw struct {
			Score   json.RawMessage `json:"score"`
			Level   string          `json:"level"`
			Comment string          `json:"comment"`
			Reason  string          `json:"reasoning"`
		}
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		score, err := looseNumber(raw.Score)
		if err != nil {
			return err
		}
		d.Score = score
		d.Level = strings.ToLower(strings.TrimSpace(raw.Level))
		d.Comment = raw.Comment
		if d.Comment == "" {
			d.Comment = raw.Reason
		}
	default:
		score, err := looseNumber(b)
		if err != nil {
			return err
		}
		d.Score = score
	}
	d.present = true
	return nil
}

func (d DimensionScore) Present() bool { return d.present }

// UnmarshalJSON matches dimension keys ignoring case, '_', '-' and spaces.
func (d *Dimensions) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		var target *DimensionScore
		switch normalizeKey(k) {
		case "technicalskills", "technical", "skills":
			target = &d.TechnicalSkills
		case "experience":
			target = &d.Experience
		case "education":
			target = &d.Education
		case "softskills", "communication":
			target = &d.SoftSkills
		case "culturalfit", "culture", "culturefit":
			target = &d.CulturalFit
		default:
			continue
		}
		if err := json.Unmarshal(v, target); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dimensions) all() []*DimensionScore {
	return []*DimensionScore{&d.TechnicalSkills, &d.Experience, &d.Education, &d.SoftSkills, &d.CulturalFit}
}

// Normalize applies the ingestion defaults: 0-10 scores are rescaled to
// 0-100, everything is clamped, missing levels are derived from scores,
// a missing overall score is the mean of present dimensions, and nil
// lists become empty.
func (a *Analysis) Normalize() {
	dims := a.Dimensions.all()
	tenScale := a.OverallScore <= 10
	for _, d := range dims {
		if d.present && d.Score > 10 {
			tenScale = false
		}
	}

	var sum float64
	var n int
	for _, d := range dims {
		if !d.present {
			d.Level = ""
			continue
		}
		if tenScale {
			d.Score *= 10
		}
		d.Score = clampScore(d.Score)
		if !validLevel(d.Level) {
			d.Level = LevelFor(d.Score)
		}
		sum += d.Score
		n++
	}

	if a.OverallScore > 0 && tenScale {
		a.OverallScore *= 10
	}
	if a.OverallScore <= 0 && n > 0 {
		a.OverallScore = math.Round(sum/float64(n)*10) / 10
	}
	a.OverallScore = clampScore(a.OverallScore)

	a.Analysis.Summary = strings.TrimSpace(a.Analysis.Summary)
	a.Analysis.Strengths = cleanList(a.Analysis.Strengths)
	a.Analysis.DevelopmentAreas = cleanList(a.Analysis.DevelopmentAreas)
	a.Analysis.MatchedSkills = cleanList(a.Analysis.MatchedSkills)
}

// HasScores reports whether the LLM produced anything we can rank on.
func (a *Analysis) HasScores() bool {
	if a.OverallScore > 0 {
		return true
	}
	for _, d := range a.Dimensions.all() {
		if d.present {
			return true
		}
	}
	return false
}

func LevelFor(score float64) string {
	switch {
	case score >= 75:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	default:
		return LevelLow
	}
}

func validLevel(l string) bool {
	return l == LevelHigh || l == LevelMedium || l == LevelLow
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// looseNumber reads 82, 82.5, "82" or "82%".
func looseNumber(b json.RawMessage) (float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(b, &f)
	return f, err
}
