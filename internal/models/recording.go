package models

import "time"

type Recording struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID   string `gorm:"column:session_id;type:uuid;index:idx_recordings_session_question" json:"session_id"`
	CandidateID string `gorm:"column:candidate_id;type:uuid;index;not null" json:"candidate_id"`
	QuestionID  string `gorm:"column:question_id;type:uuid;index:idx_recordings_session_question;not null" json:"question_id"`

	AudioPath string `gorm:"column:audio_path;type:text" json:"audio_path"` // object key in the recordings bucket
	AudioURL  string `gorm:"column:audio_url;type:text" json:"audio_url"`

	Transcript     string   `gorm:"column:transcript;type:text;not null;default:''" json:"transcript"`
	SentimentScore *float64 `gorm:"column:sentiment_score" json:"sentiment_score,omitempty"`
	SentimentType  *string  `gorm:"column:sentiment_type;type:text" json:"sentiment_type,omitempty"`

	IsProcessed bool       `gorm:"column:is_processed;not null;default:false" json:"is_processed"`
	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamptz" json:"processed_at,omitempty"`
	Notes       *string    `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Recording) TableName() string { return "recordings" }

// Transcription is the derived speech result for one recording.
type Transcription struct {
	Transcript     string   `json:"transcript"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	SentimentType  *string  `json:"sentiment_type,omitempty"`
}

func (r *Recording) Transcription() *Transcription {
	return &Transcription{
		Transcript:     r.Transcript,
		SentimentScore: r.SentimentScore,
		SentimentType:  r.SentimentType,
	}
}
