// Package ingest accepts new transcode requests and exposes job status and
// cancellation to owners.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vidmill/vidmill/internal/models"
	"github.com/vidmill/vidmill/internal/queue"
	"github.com/vidmill/vidmill/internal/repository"
	"github.com/vidmill/vidmill/internal/status"
	"github.com/vidmill/vidmill/internal/store"
)

// ErrAlreadyTerminal is returned when cancelling a job that already finished.
var ErrAlreadyTerminal = errors.New("ingest: job already in a terminal state")

// ErrSourceNotFound is returned when the source file does not exist.
var ErrSourceNotFound = errors.New("ingest: source file not found")

// Service creates, reports, and cancels transcode jobs.
type Service struct {
	store  store.Store
	queue  queue.Queue
	videos repository.VideoRepository
	events status.Publisher
	logger *slog.Logger
}

// NewService wires the ingest service. videos and events may be nil.
func NewService(jobStore store.Store, q queue.Queue, videos repository.VideoRepository, events status.Publisher) *Service {
	return &Service{
		store:  jobStore,
		queue:  q,
		videos: videos,
		events: events,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Enqueue creates a queued job for the source file and hands it to the
// worker pool.
func (s *Service) Enqueue(ctx context.Context, ownerID, sourcePath, title string) (*models.Job, error) {
	job := models.NewJob(models.NewULID().String(), ownerID, sourcePath, title)
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
	}

	if err := s.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("storing job: %w", err)
	}

	if s.videos != nil {
		video := &models.Video{
			JobID:      job.ID,
			OwnerID:    ownerID,
			Title:      title,
			SourcePath: sourcePath,
			Status:     models.JobStatusQueued,
		}
		if err := s.videos.Create(ctx, video); err != nil {
			s.logger.Warn("creating video mirror row",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
		}
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		// The record exists but no worker will pick it up; surface the
		// failure so the caller can retry.
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}

	s.notify(job)
	s.logger.Info("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("owner_id", ownerID),
		slog.String("source", sourcePath))

	return job, nil
}

// Status returns the current job record. store.ErrNotFound is passed
// through when the job is unknown or expired.
func (s *Service) Status(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.Get(ctx, jobID)
}

// Cancel requests cancellation of a job. The request is asynchronous: a
// queued job is cancelled when a worker dequeues it, a processing job at its
// next checkpoint.
func (s *Service) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, ErrAlreadyTerminal
	}

	if err := s.store.RequestCancel(ctx, jobID); err != nil {
		return nil, fmt.Errorf("requesting cancel: %w", err)
	}

	s.logger.Info("cancellation requested",
		slog.String("job_id", jobID),
		slog.String("status", string(job.Status)))
	return job, nil
}

// ListActive returns all jobs that have not reached a terminal status.
func (s *Service) ListActive(ctx context.Context) ([]*models.Job, error) {
	return s.store.ListActive(ctx)
}

// QueueSnapshot describes the queue backlog and the jobs currently in flight.
type QueueSnapshot struct {
	Length     int64         `json:"length"`
	ActiveJobs []*models.Job `json:"active_jobs"`
}

// Snapshot returns the queue length together with every non-terminal job.
func (s *Service) Snapshot(ctx context.Context) (*QueueSnapshot, error) {
	length, err := s.queue.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading queue length: %w", err)
	}
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active jobs: %w", err)
	}
	return &QueueSnapshot{Length: length, ActiveJobs: active}, nil
}

func (s *Service) notify(job *models.Job) {
	if s.events == nil {
		return
	}
	s.events.Publish(status.Event{
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
	})
}
