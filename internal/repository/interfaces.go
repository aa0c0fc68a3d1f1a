// Package repository provides data access for the relational video mirror.
package repository

import (
	"context"

	"github.com/vidmill/vidmill/internal/models"
)

// VideoRepository manages video mirror rows.
type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id models.ULID) (*models.Video, error)
	GetByJobID(ctx context.Context, jobID string) (*models.Video, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*models.Video, error)
	GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.Video, error)
	Update(ctx context.Context, video *models.Video) error
	Delete(ctx context.Context, id models.ULID) error
}
