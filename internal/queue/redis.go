package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list jobs are pushed onto when no key is configured.
const DefaultKey = "scraper_jobs"

// dequeueBlock bounds each BRPOP so the consumer loop can notice context
// cancellation between polls.
const dequeueBlock = 5 * time.Second

// RedisQueue implements Producer and Consumer over a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to the Redis backend at url and uses key as the job
// list name.
func NewRedisQueue(url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: redis.NewClient(opts), key: key}, nil
}

// Ping verifies the backend is reachable. Used at startup to fail loudly
// before any schedule is registered.
func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return &UnavailableError{Op: "ping", Err: err}
	}
	return nil
}

// Enqueue serializes the payload to JSON and LPUSHes it onto the job list.
func (q *RedisQueue) Enqueue(ctx context.Context, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return &UnavailableError{Op: "enqueue", Err: err}
	}
	return nil
}

// Dequeue blocks on BRPOP until a payload arrives or the context ends.
func (q *RedisQueue) Dequeue(ctx context.Context) (Payload, error) {
	for {
		res, err := q.client.BRPop(ctx, dequeueBlock, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Payload{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Payload{}, ctx.Err()
			}
			return Payload{}, &UnavailableError{Op: "dequeue", Err: err}
		}
		// BRPOP returns [key, value].
		if len(res) != 2 {
			return Payload{}, fmt.Errorf("unexpected brpop reply of length %d", len(res))
		}
		var payload Payload
		if err := json.Unmarshal([]byte(res[1]), &payload); err != nil {
			return Payload{}, fmt.Errorf("unmarshal job payload: %w", err)
		}
		return payload, nil
	}
}

// Close releases the underlying Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
