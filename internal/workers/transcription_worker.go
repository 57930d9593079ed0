package workers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/recruitgenius/backend/internal/queue"
	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

// TranscriptionWorkerPool drains the transcription queue and runs each job
// through the session orchestrator.
type TranscriptionWorkerPool struct {
	Queue      queue.Queue
	Sessions   services.SessionService
	NumWorkers int

	Logger *logrus.Logger
}

func (p *TranscriptionWorkerPool) Start(ctx context.Context) error {
	if p.Queue == nil || p.Sessions == nil {
		return errors.New("TranscriptionWorkerPool missing dependency: Queue/Sessions must be set")
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	go func() {
		if err := p.Queue.Consume(ctx, p.NumWorkers, p.Handle); err != nil && !errors.Is(err, context.Canceled) {
			p.Logger.WithError(err).Error("transcription consumer stopped")
		}
	}()
	return nil
}

// Handle processes one job. Errors that cannot succeed on a retry are
// wrapped with queue.Permanent.
func (p *TranscriptionWorkerPool) Handle(ctx context.Context, job queue.Job) error {
	log := p.logger().WithFields(logrus.Fields{
		"recording_id": job.RecordingID,
		"session_id":   job.SessionID,
		"attempt":      job.Attempt,
	})
	if job.RecordingID == "" {
		log.Warn("dropping job without recording id")
		return queue.Permanent(errors.New("job has no recording id"))
	}

	start := time.Now()
	_, err := p.Sessions.ProcessRecording(ctx, job.RecordingID, "")
	if err == nil {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("transcription job done")
		return nil
	}

	switch {
	case utils.IsCode(err, utils.CodeConflict):
		log.WithError(err).Info("recording handled elsewhere")
		return nil
	case utils.IsCode(err, utils.CodeNotFound):
		log.WithError(err).Warn("recording vanished; dropping job")
		return queue.Permanent(err)
	case utils.Retryable(err):
		log.WithError(err).Warn("transcription job failed; will retry")
		return err
	default:
		log.WithError(err).Error("transcription job failed permanently")
		return queue.Permanent(err)
	}
}

func (p *TranscriptionWorkerPool) logger() *logrus.Logger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}
