package queue

import (
	"context"
	"errors"
)

// Job asks a worker to transcribe one recording. Attempt starts at 0.
type Job struct {
	RecordingID string `json:"recording_id"`
	SessionID   string `json:"session_id"`
	Attempt     int    `json:"attempt"`
}

type Handler func(ctx context.Context, job Job) error

type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

type Queue interface {
	Publisher
	// Consume runs workers until ctx is cancelled. A handler error re-enqueues
	// the job with Attempt+1 unless it is Permanent or attempts are exhausted.
	Consume(ctx context.Context, workers int, h Handler) error
	Close() error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// shouldRetry reports whether a failed job gets another attempt.
func shouldRetry(job Job, err error, maxAttempts int) bool {
	if IsPermanent(err) {
		return false
	}
	return job.Attempt+1 < maxAttempts
}

// NopQueue drops jobs. It backs QUEUE_DRIVER=none, where transcription is
// only triggered manually.
type NopQueue struct{}

func (NopQueue) Publish(context.Context, Job) error { return nil }
func (NopQueue) Consume(ctx context.Context, _ int, _ Handler) error {
	<-ctx.Done()
	return nil
}
func (NopQueue) Close() error { return nil }
