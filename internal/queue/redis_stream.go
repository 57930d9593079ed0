package queue

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisStreamConfig struct {
	Stream         string
	Group          string
	ConsumerPrefix string
	MaxAttempts    int
	Block          time.Duration
	RetryDelay     time.Duration
}

// RedisStreamQueue is a consumer-group queue on a Redis stream. Retries are
// new stream entries, so a crashed worker never loses the original.
type RedisStreamQueue struct {
	rdb *redis.Client
	cfg RedisStreamConfig
	log *logrus.Logger

	once sync.Once
}

func NewRedisStreamQueue(rdb *redis.Client, cfg RedisStreamConfig, log *logrus.Logger) *RedisStreamQueue {
	if cfg.Stream == "" {
		cfg.Stream = "transcription:stream"
	}
	if cfg.Group == "" {
		cfg.Group = "transcription-workers"
	}
	if cfg.ConsumerPrefix == "" {
		cfg.ConsumerPrefix = "c"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if log == nil {
		log = logrus.New()
	}
	return &RedisStreamQueue{rdb: rdb, cfg: cfg, log: log}
}

func (q *RedisStreamQueue) Close() error { return nil }

func (q *RedisStreamQueue) Publish(ctx context.Context, job Job) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: jobValues(job),
	}).Err()
}

func (q *RedisStreamQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.rdb.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.log.WithError(err).Warn("create consumer group")
		}
	})
}

func (q *RedisStreamQueue) Consume(ctx context.Context, workers int, h Handler) error {
	if h == nil {
		return errors.New("queue: nil handler")
	}
	if workers <= 0 {
		workers = 1
	}
	q.ensureGroup(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		consumer := q.cfg.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.runConsumer(ctx, consumer, h)
		}()
	}
	wg.Wait()
	return nil
}

func (q *RedisStreamQueue) runConsumer(ctx context.Context, consumer string, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := q.readOnce(ctx, consumer, h); err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// readOnce handles one batch and returns how many messages it saw.
func (q *RedisStreamQueue) readOnce(ctx context.Context, consumer string, h Handler) (int, error) {
	res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    10,
		Block:    q.cfg.Block,
	}).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for _, stream := range res {
		for _, msg := range stream.Messages {
			q.handleMessage(ctx, msg, h)
			n++
		}
	}
	return n, nil
}

func (q *RedisStreamQueue) handleMessage(ctx context.Context, msg redis.XMessage, h Handler) {
	job, ok := decodeJob(msg.Values)
	if !ok {
		q.log.WithField("redis_id", msg.ID).Warn("dropping malformed job")
		q.ackAndDel(ctx, msg.ID)
		return
	}

	log := q.log.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"recording_id": job.RecordingID,
		"session_id":   job.SessionID,
		"attempt":      job.Attempt,
	})

	err := h(ctx, job)
	if err == nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}

	if !shouldRetry(job, err, q.cfg.MaxAttempts) {
		log.WithError(err).Error("job failed; giving up")
		q.ackAndDel(ctx, msg.ID)
		return
	}

	log.WithError(err).Warn("job failed; re-enqueueing")
	if q.cfg.RetryDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.RetryDelay):
		}
	}
	next := job
	next.Attempt++
	if err := q.requeueAndAck(ctx, msg.ID, next); err != nil {
		// the original stays pending and can be claimed again
		log.WithError(err).Error("requeue failed")
	}
}

func (q *RedisStreamQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.rdb.XAck(ctx, q.cfg.Stream, q.cfg.Group, msgID).Result()
	_, _ = q.rdb.XDel(ctx, q.cfg.Stream, msgID).Result()
}

func (q *RedisStreamQueue) requeueAndAck(ctx context.Context, msgID string, job Job) error {
	pipe := q.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: jobValues(job),
	})
	pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, msgID)
	pipe.XDel(ctx, q.cfg.Stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func jobValues(job Job) map[string]any {
	return map[string]any{
		"recording_id": job.RecordingID,
		"session_id":   job.SessionID,
		"attempt":      strconv.Itoa(job.Attempt),
	}
}

func decodeJob(v map[string]any) (Job, bool) {
	get := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	job := Job{RecordingID: get("recording_id"), SessionID: get("session_id")}
	if job.RecordingID == "" {
		return Job{}, false
	}
	if a := get("attempt"); a != "" {
		n, err := strconv.Atoi(a)
		if err != nil {
			return Job{}, false
		}
		job.Attempt = n
	}
	return job, true
}
