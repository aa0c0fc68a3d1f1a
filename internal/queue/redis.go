package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a Redis list. LPUSH at the head paired
// with RPOP at the tail gives FIFO ordering; RPOP is atomic so concurrent
// workers never dequeue the same job.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a queue on the given client. keyPrefix namespaces
// the list key, e.g. "vidmill" yields "vidmill:queue".
func NewRedisQueue(client *redis.Client, keyPrefix string) *RedisQueue {
	return &RedisQueue{
		client: client,
		key:    keyPrefix + ":queue",
	}
}

// Enqueue appends a job ID to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("enqueueing job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue removes and returns the oldest job ID. It returns ("", nil) when
// the queue is empty.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	jobID, err := q.client.RPop(ctx, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("dequeueing job: %w", err)
	}
	return jobID, nil
}

// Len returns the number of queued jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("reading queue length: %w", err)
	}
	return n, nil
}
