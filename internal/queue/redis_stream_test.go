package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func newTestQueue(t *testing.T, maxAttempts int) (*RedisStreamQueue, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	q := NewRedisStreamQueue(rdb, RedisStreamConfig{
		Stream:      "test:transcription",
		Group:       "test-group",
		MaxAttempts: maxAttempts,
		Block:       20 * time.Millisecond,
	}, log)
	q.ensureGroup(context.Background())
	return q, rdb
}

func TestRedisStreamQueueDeliversAndAcks(t *testing.T) {
	q, rdb := newTestQueue(t, 3)
	ctx := context.Background()

	if err := q.Publish(ctx, Job{RecordingID: "rec-1", SessionID: "s-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var got []Job
	n, err := q.readOnce(ctx, "c-1", func(_ context.Context, j Job) error {
		got = append(got, j)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 1 || len(got) != 1 || got[0].RecordingID != "rec-1" || got[0].SessionID != "s-1" || got[0].Attempt != 0 {
		t.Fatalf("unexpected delivery n=%d jobs=%+v", n, got)
	}

	pending, err := rdb.XPending(ctx, q.cfg.Stream, q.cfg.Group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}
	if l, _ := rdb.XLen(ctx, q.cfg.Stream).Result(); l != 0 {
		t.Fatalf("expected empty stream, got len=%d", l)
	}
}

func TestRedisStreamQueueRetriesWithNextAttempt(t *testing.T) {
	q, rdb := newTestQueue(t, 3)
	ctx := context.Background()

	if err := q.Publish(ctx, Job{RecordingID: "rec-2", SessionID: "s-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := q.readOnce(ctx, "c-1", func(context.Context, Job) error {
		return errors.New("upstream 502")
	}); err != nil {
		t.Fatalf("read: %v", err)
	}

	msgs, err := rdb.XRange(ctx, q.cfg.Stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one requeued message, got %d", len(msgs))
	}
	if msgs[0].Values["recording_id"] != "rec-2" || msgs[0].Values["attempt"] != "1" {
		t.Fatalf("unexpected requeued payload: %+v", msgs[0].Values)
	}

	pending, err := rdb.XPending(ctx, q.cfg.Stream, q.cfg.Group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("original should be acked, pending=%d", pending.Count)
	}
}

func TestRedisStreamQueueDropsPermanentAndExhausted(t *testing.T) {
	q, rdb := newTestQueue(t, 3)
	ctx := context.Background()

	_ = q.Publish(ctx, Job{RecordingID: "rec-perm"})
	_ = q.Publish(ctx, Job{RecordingID: "rec-last", Attempt: 2})

	calls := 0
	if _, err := q.readOnce(ctx, "c-1", func(_ context.Context, j Job) error {
		calls++
		if j.RecordingID == "rec-perm" {
			return Permanent(errors.New("recording not found"))
		}
		return errors.New("timeout")
	}); err != nil {
		t.Fatalf("read: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected both jobs handled, got %d", calls)
	}
	if l, _ := rdb.XLen(ctx, q.cfg.Stream).Result(); l != 0 {
		t.Fatalf("expected nothing requeued, stream len=%d", l)
	}
}

func TestRedisStreamQueueDropsMalformed(t *testing.T) {
	q, rdb := newTestQueue(t, 3)
	ctx := context.Background()

	if err := rdb.XAdd(ctx, &redis.XAddArgs{Stream: q.cfg.Stream, Values: map[string]any{"foo": "bar"}}).Err(); err != nil {
		t.Fatalf("xadd: %v", err)
	}
	called := false
	if _, err := q.readOnce(ctx, "c-1", func(context.Context, Job) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if called {
		t.Fatalf("handler must not see malformed jobs")
	}
	if l, _ := rdb.XLen(ctx, q.cfg.Stream).Result(); l != 0 {
		t.Fatalf("malformed entry not removed, len=%d", l)
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = q.Consume(ctx, 2, func(context.Context, Job) error { return nil })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Consume did not return after cancel")
	}
}

func TestShouldRetry(t *testing.T) {
	if !shouldRetry(Job{Attempt: 0}, errors.New("x"), 3) {
		t.Fatalf("first failure should retry")
	}
	if shouldRetry(Job{Attempt: 2}, errors.New("x"), 3) {
		t.Fatalf("third failure should not retry")
	}
	if shouldRetry(Job{}, Permanent(errors.New("x")), 3) {
		t.Fatalf("permanent errors should not retry")
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) should be nil")
	}
}
