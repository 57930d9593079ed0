package models

import "time"

type Resume struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CandidateID string `gorm:"column:candidate_id;type:uuid;index" json:"candidate_id"`
	FileName    string `gorm:"column:file_name;type:text" json:"file_name"`
	FilePath    string `gorm:"column:file_path;type:text" json:"file_path"`

	FileSize int    `gorm:"column:file_size;type:integer" json:"file_size"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`

	ExtractedText string `gorm:"column:extracted_text;type:text" json:"extracted_text,omitempty"`

	UploadedAt time.Time `gorm:"column:uploaded_at;type:timestamptz" json:"uploaded_at"`
}

func (Resume) TableName() string { return "resumes" }

type JobPosting struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;type:text;not null" json:"title"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (JobPosting) TableName() string { return "job_postings" }
