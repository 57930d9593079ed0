package cache

import (
	"context"
	"time"
)

// Cache is a read-through helper in front of Postgres. The store always
// wins: writers update the database first and then Del the affected keys.
// A corrupt entry reads as a miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// Keys shared between services that read and invalidate them.
const (
	KeyQuestionsAll     = "questions:all"
	keyQuestionsCatPref = "questions:category:"
	KeyEvaluationsPref  = "evaluations:list:"
)

func QuestionsKey(category string) string {
	if category == "" {
		return KeyQuestionsAll
	}
	return keyQuestionsCatPref + category
}
