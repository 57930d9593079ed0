package models

import "time"

const (
	EventRecordingSaved      = "recording_saved"
	EventProgress            = "progress"
	EventCompleted           = "completed"
	EventTranscriptionDone   = "transcription_done"
	EventTranscriptionFailed = "transcription_failed"
)

// SessionEvent is pushed to candidates listening on a session.
type SessionEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	RecordingID string    `json:"recording_id,omitempty"`
	QuestionID  string    `json:"question_id,omitempty"`
	Progress    *int      `json:"progress,omitempty"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}
