package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranscriptionAttempt is one call to the speech provider for a recording.
type TranscriptionAttempt struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordingID string             `bson:"recording_id" json:"recording_id"`
	SessionID   string             `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Provider    string             `bson:"provider" json:"provider"`

	Status     string `bson:"status" json:"status"` // done|failed
	Error      string `bson:"error,omitempty" json:"error,omitempty"`
	DurationMS int64  `bson:"duration_ms" json:"duration_ms"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

const (
	AttemptDone   = "done"
	AttemptFailed = "failed"
)
