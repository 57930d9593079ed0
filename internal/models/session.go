package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Session is one candidate's attempt at an ordered set of questions.
// Questions is a snapshot of ids taken at creation; QuestionSnapshot keeps
// the text as it was so later edits to the bank never leak into the session.
type Session struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CandidateID string         `gorm:"column:candidate_id;type:uuid;index" json:"candidate_id"`
	Questions   pq.StringArray `gorm:"column:questions;type:text[]" json:"questions"`

	QuestionSnapshot datatypes.JSON `gorm:"column:question_snapshot;type:jsonb" json:"-"`

	Progress    int        `gorm:"column:progress;not null;default:0" json:"progress"`
	IsCompleted bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`
}

func (Session) TableName() string { return "sessions" }

// SnapshotQuestion is the frozen copy of a question inside a session.
type SnapshotQuestion struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

func NewQuestionSnapshot(qs []Question) (datatypes.JSON, error) {
	out := make([]SnapshotQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, SnapshotQuestion{ID: q.ID, Text: q.Text, Category: q.Category})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *Session) Snapshot() ([]SnapshotQuestion, error) {
	if len(s.QuestionSnapshot) == 0 {
		return nil, nil
	}
	var out []SnapshotQuestion
	if err := json.Unmarshal(s.QuestionSnapshot, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IndexOf returns the position of questionID in the session, or -1.
func (s *Session) IndexOf(questionID string) int {
	for i, id := range s.Questions {
		if id == questionID {
			return i
		}
	}
	return -1
}

// Status is derived, never stored.
func (s *Session) Status() string {
	if s.IsCompleted {
		return SessionCompleted
	}
	return SessionInProgress
}

const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

// AdvanceResult is what the orchestrator reports after moving a session forward.
type AdvanceResult struct {
	NextIndex *int `json:"next_index,omitempty"`
	Completed bool `json:"completed"`
}
