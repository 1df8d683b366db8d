package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPollTimeout = 2 * time.Second

// RedisQueue shares job ids between processes through a Redis list:
// producers LPUSH and consumers BRPOP, so ids come out in push order.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
	closed      atomic.Bool
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollTimeout: defaultPollTimeout}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 30 * time.Second
	opts.WriteTimeout = 30 * time.Second
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (q *RedisQueue) Push(ctx context.Context, jobID string) error {
	if q.closed.Load() {
		return ErrClosed
	}
	return q.client.LPush(ctx, q.key, jobID).Err()
}

// Pop polls with a bounded BRPOP so Close and ctx cancellation are noticed.
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	for {
		if q.closed.Load() {
			return "", ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("brpop %s: %w", q.key, err)
		}
		// result[0] is the list name, result[1] the value
		if len(result) < 2 {
			continue
		}
		return result[1], nil
	}
}

// Close stops the queue. The client is owned by the caller.
func (q *RedisQueue) Close() error {
	q.closed.Store(true)
	return nil
}
