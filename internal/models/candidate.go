package models

import "time"

type Candidate struct {
	ID    string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name  string `gorm:"column:name;type:text" json:"name"`
	Email string `gorm:"column:email;type:text;index" json:"email"`

	// back-reference, set once a Session exists
	SessionID *string `gorm:"column:session_id;type:uuid" json:"session_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Candidate) TableName() string { return "candidates" }
