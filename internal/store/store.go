// Package store persists job records and cancellation flags for their
// retention window.
package store

import (
	"context"
	"errors"

	"github.com/vidmill/vidmill/internal/models"
)

// ErrNotFound is returned when a job record does not exist or its retention
// window has expired.
var ErrNotFound = errors.New("store: job not found")

// Store holds job records. Put starts the retention clock; later updates
// through Update keep the original expiry.
type Store interface {
	// Put writes a new job record and starts its TTL.
	Put(ctx context.Context, job *models.Job) error

	// Update rewrites an existing record, preserving its remaining TTL.
	Update(ctx context.Context, job *models.Job) error

	// Get returns a job record or ErrNotFound.
	Get(ctx context.Context, jobID string) (*models.Job, error)

	// Delete removes a job record and its cancel flag.
	Delete(ctx context.Context, jobID string) error

	// List returns all live job records.
	List(ctx context.Context) ([]*models.Job, error)

	// ListActive returns records whose status is not terminal.
	ListActive(ctx context.Context) ([]*models.Job, error)

	// RequestCancel sets the cancellation flag for a job.
	RequestCancel(ctx context.Context, jobID string) error

	// IsCancelRequested reports whether cancellation was requested.
	IsCancelRequested(ctx context.Context, jobID string) (bool, error)

}
