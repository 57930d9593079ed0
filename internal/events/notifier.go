package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// Notifier fans session events out to whoever is listening. Delivery is
// best effort; callers log failures and carry on.
type Notifier interface {
	Publish(ctx context.Context, ev models.SessionEvent) error
}

func Channel(sessionID string) string {
	return "session:" + sessionID + ":events"
}

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev models.SessionEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel(ev.SessionID), b).Err()
}

// Subscribe returns the pubsub for a session's channel. Close it when done.
func (n *RedisNotifier) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return n.rdb.Subscribe(ctx, Channel(sessionID))
}

type Nop struct{}

func (Nop) Publish(context.Context, models.SessionEvent) error { return nil }
