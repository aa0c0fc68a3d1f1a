package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidmill/vidmill/internal/models"
)

// scanBatchSize is the COUNT hint for SCAN when listing records.
const scanBatchSize = 100

// RedisStore is a Store keeping each job as a JSON value under
// "<prefix>:job:<id>" with a fixed TTL. Cancellation flags live alongside at
// "<prefix>:job:<id>:cancel" with the same TTL so they never outlive the
// record they refer to.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store with the given key prefix and record TTL.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) jobKey(jobID string) string {
	return s.prefix + ":job:" + jobID
}

func (s *RedisStore) cancelKey(jobID string) string {
	return s.jobKey(jobID) + ":cancel"
}

// Put writes a new job record and starts its retention TTL.
func (s *RedisStore) Put(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, s.jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing job %s: %w", job.ID, err)
	}
	return nil
}

// Update rewrites a record without resetting its TTL, so a job expires a
// fixed time after creation regardless of how often its progress changes.
// The XX mode keeps a record that expired mid-write from being recreated
// without an expiry; ErrNotFound is returned instead.
func (s *RedisStore) Update(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.ID, err)
	}
	err = s.client.SetArgs(ctx, s.jobKey(job.ID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job record or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching job %s: %w", jobID, err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job %s: %w", jobID, err)
	}
	return &job, nil
}

// Delete removes the record and its cancel flag.
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, s.jobKey(jobID), s.cancelKey(jobID)).Err(); err != nil {
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}
	return nil
}

// List returns every live job record.
func (s *RedisStore) List(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job

	iter := s.client.Scan(ctx, 0, s.prefix+":job:*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// Skip cancel flags picked up by the wildcard.
		if len(key) > 7 && key[len(key)-7:] == ":cancel" {
			continue
		}

		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between SCAN and GET.
				continue
			}
			return nil, fmt.Errorf("fetching %s: %w", key, err)
		}

		var job models.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("unmarshaling %s: %w", key, err)
		}
		jobs = append(jobs, &job)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning job records: %w", err)
	}
	return jobs, nil
}

// ListActive returns records still queued or processing.
func (s *RedisStore) ListActive(ctx context.Context) ([]*models.Job, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var active []*models.Job
	for _, job := range all {
		if !job.Status.IsTerminal() {
			active = append(active, job)
		}
	}
	return active, nil
}

// RequestCancel marks the job for cancellation. The flag carries the store
// TTL rather than the record's remaining TTL; Delete removes it together
// with the record once the worker acts on it.
func (s *RedisStore) RequestCancel(ctx context.Context, jobID string) error {
	if err := s.client.Set(ctx, s.cancelKey(jobID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("requesting cancel for job %s: %w", jobID, err)
	}
	return nil
}

// IsCancelRequested reports whether the cancel flag is set.
func (s *RedisStore) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.cancelKey(jobID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking cancel flag for job %s: %w", jobID, err)
	}
	return n > 0, nil
}
