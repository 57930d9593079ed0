package models

import "time"

type Question struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Text     string `gorm:"column:text;type:text;not null" json:"text"`
	Category string `gorm:"column:category;type:text;index" json:"category"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Question) TableName() string { return "questions" }
