package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vidmill/vidmill/internal/models"
)

// videoRepo implements VideoRepository using GORM.
type videoRepo struct {
	db *gorm.DB
}

var _ VideoRepository = (*videoRepo)(nil)

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(db *gorm.DB) *videoRepo {
	return &videoRepo{db: db}
}

// Create creates a new video row.
func (r *videoRepo) Create(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("creating video: %w", err)
	}
	return nil
}

// GetByID retrieves a video by its row ID. Returns nil when not found.
func (r *videoRepo) GetByID(ctx context.Context, id models.ULID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video by ID: %w", err)
	}
	return &video, nil
}

// GetByJobID retrieves the video mirroring a job. Returns nil when not found.
func (r *videoRepo) GetByJobID(ctx context.Context, jobID string) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video by job ID: %w", err)
	}
	return &video, nil
}

// GetByOwner retrieves an owner's videos, newest first.
func (r *videoRepo) GetByOwner(ctx context.Context, ownerID string) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting videos by owner: %w", err)
	}
	return videos, nil
}

// GetByStatus retrieves videos by mirrored status.
func (r *videoRepo) GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting videos by status: %w", err)
	}
	return videos, nil
}

// Update saves an existing video row.
func (r *videoRepo) Update(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Save(video).Error; err != nil {
		return fmt.Errorf("updating video: %w", err)
	}
	return nil
}

// Delete removes a video row.
func (r *videoRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Video{}).Error; err != nil {
		return fmt.Errorf("deleting video: %w", err)
	}
	return nil
}
