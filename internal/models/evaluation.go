package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const (
	EvaluationPending      = "pending"
	EvaluationReviewed     = "reviewed"
	EvaluationShortlisted  = "shortlisted"
	EvaluationRejected     = "rejected"
	EvaluationInterviewing = "interviewing"
)

func ValidEvaluationStatus(s string) bool {
	switch s {
	case EvaluationPending, EvaluationReviewed, EvaluationShortlisted, EvaluationRejected, EvaluationInterviewing:
		return true
	}
	return false
}

type ResumeEvaluation struct {
	ID           string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ResumeID     string `gorm:"column:resume_id;type:uuid;index" json:"resume_id"`
	JobPostingID string `gorm:"column:job_posting_id;type:uuid;index" json:"job_posting_id"`
	CandidateID  string `gorm:"column:candidate_id;type:uuid;index" json:"candidate_id"`

	OverallScore float64 `gorm:"column:overall_score" json:"overall_score"`

	TechnicalScore  float64 `gorm:"column:technical_score" json:"technical_score"`
	TechnicalLevel  string  `gorm:"column:technical_level;type:text" json:"technical_level"`
	ExperienceScore float64 `gorm:"column:experience_score" json:"experience_score"`
	ExperienceLevel string  `gorm:"column:experience_level;type:text" json:"experience_level"`
	EducationScore  float64 `gorm:"column:education_score" json:"education_score"`
	EducationLevel  string  `gorm:"column:education_level;type:text" json:"education_level"`
	SoftSkillsScore float64 `gorm:"column:soft_skills_score" json:"soft_skills_score"`
	SoftSkillsLevel string  `gorm:"column:soft_skills_level;type:text" json:"soft_skills_level"`
	CultureScore    float64 `gorm:"column:culture_score" json:"culture_score"`
	CultureLevel    string  `gorm:"column:culture_level;type:text" json:"culture_level"`

	MatchedSkills pq.StringArray `gorm:"column:matched_skills;type:text[]" json:"matched_skills"`
	AnalysisJSON  datatypes.JSON `gorm:"column:analysis_json;type:jsonb" json:"analysis_json"`

	Status               string  `gorm:"column:status;type:text;default:'pending'" json:"status"`
	Remarks              string  `gorm:"column:remarks;type:text" json:"remarks"`
	SelectedForInterview bool    `gorm:"column:selected_for_interview;not null;default:false" json:"selected_for_interview"`
	SessionID            *string `gorm:"column:session_id;type:uuid" json:"session_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (ResumeEvaluation) TableName() string { return "resume_evaluations" }

// ApplyAnalysis copies the validated LLM result onto the flat columns.
func (e *ResumeEvaluation) ApplyAnalysis(a *Analysis) {
	e.OverallScore = a.OverallScore
	e.TechnicalScore, e.TechnicalLevel = a.Dimensions.TechnicalSkills.Score, a.Dimensions.TechnicalSkills.Level
	e.ExperienceScore, e.ExperienceLevel = a.Dimensions.Experience.Score, a.Dimensions.Experience.Level
	e.EducationScore, e.EducationLevel = a.Dimensions.Education.Score, a.Dimensions.Education.Level
	e.SoftSkillsScore, e.SoftSkillsLevel = a.Dimensions.SoftSkills.Score, a.Dimensions.SoftSkills.Level
	e.CultureScore, e.CultureLevel = a.Dimensions.CulturalFit.Score, a.Dimensions.CulturalFit.Level
	e.MatchedSkills = pq.StringArray(a.Analysis.MatchedSkills)
}

// EvaluationUpdate is a partial admin edit; nil fields are left alone.
type EvaluationUpdate struct {
	Status               *string `json:"status,omitempty"`
	Remarks              *string `json:"remarks,omitempty"`
	SelectedForInterview *bool   `json:"selected_for_interview,omitempty"`
}

type EvaluationFilter struct {
	JobPostingID string
	CandidateID  string
	Status       string
	SelectedOnly bool
	MinScore     float64
	Limit        int
	Offset       int
}

// EvaluationRow is the joined admin list entry.
type EvaluationRow struct {
	ResumeEvaluation `gorm:"embedded"`

	CandidateName  string `gorm:"column:candidate_name" json:"candidate_name"`
	CandidateEmail string `gorm:"column:candidate_email" json:"candidate_email"`
	JobTitle       string `gorm:"column:job_title" json:"job_title"`
	RecordingCount int64  `gorm:"column:recording_count" json:"recording_count"`
	ProcessedCount int64  `gorm:"column:processed_count" json:"processed_count"`
}
