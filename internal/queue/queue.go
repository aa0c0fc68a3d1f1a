// Package queue provides the FIFO job queue backing the worker pool.
package queue

import "context"

// Queue is a FIFO queue of job IDs. Enqueue appends to the tail; Dequeue
// removes from the head. Dequeue returns an empty ID without error when the
// queue is empty.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (string, error)
	Len(ctx context.Context) (int64, error)
}
