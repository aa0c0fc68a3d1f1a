// Package worker runs the transcode pipeline: a pool of workers dequeues
// jobs and drives each one from inspection through publishing.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidmill/vidmill/internal/encode"
	"github.com/vidmill/vidmill/internal/media"
	"github.com/vidmill/vidmill/internal/models"
	"github.com/vidmill/vidmill/internal/repository"
	"github.com/vidmill/vidmill/internal/status"
	"github.com/vidmill/vidmill/internal/store"
	"github.com/vidmill/vidmill/internal/transcode"
)

// Inspector probes and validates a source file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (*media.MediaInfo, error)
}

// Transcoder encodes a source into its planned renditions.
type Transcoder interface {
	Run(ctx context.Context, jobID, sourcePath string, info *media.MediaInfo, plan []encode.Rendition, cb transcode.Callbacks) ([]models.Artifact, error)
	OutputDir(jobID string) string
}

// Uploader publishes one local artifact and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// Pipeline drives a single job from dequeue to its terminal status.
type Pipeline struct {
	store      store.Store
	inspector  Inspector
	transcoder Transcoder
	uploader   Uploader
	videos     repository.VideoRepository
	events     status.Publisher
	logger     *slog.Logger
}

// NewPipeline wires the pipeline stages together. uploader, videos, and
// events may be nil; the corresponding steps are skipped.
func NewPipeline(jobStore store.Store, inspector Inspector, transcoder Transcoder, uploader Uploader, videos repository.VideoRepository, events status.Publisher) *Pipeline {
	return &Pipeline{
		store:      jobStore,
		inspector:  inspector,
		transcoder: transcoder,
		uploader:   uploader,
		videos:     videos,
		events:     events,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Process runs one dequeued job to completion. A nil return means the job
// reached a terminal status or was skipped; an error means infrastructure
// trouble and the job's outcome is undetermined.
func (p *Pipeline) Process(ctx context.Context, jobID string) error {
	log := p.logger.With(slog.String("job_id", jobID))

	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The record expired while the ID sat in the queue.
			log.Warn("dequeued job has no record, skipping")
			return nil
		}
		return fmt.Errorf("loading job: %w", err)
	}

	if job.IsTerminal() {
		log.Warn("dequeued job already terminal, skipping",
			slog.String("status", string(job.Status)))
		return nil
	}

	// A cancellation requested while the job was still queued takes effect
	// before any work starts.
	cancelled, err := p.store.IsCancelRequested(ctx, jobID)
	if err != nil {
		return fmt.Errorf("checking cancel flag: %w", err)
	}
	if cancelled {
		return p.finishCancelled(ctx, job)
	}

	job.MarkProcessing()
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job processing: %w", err)
	}
	p.notify(job)
	p.mirror(ctx, job)

	log.Info("processing job", slog.String("source", job.SourcePath))

	info, err := p.inspector.Inspect(ctx, job.SourcePath)
	if err != nil {
		// Inspection failures are terminal for the job, not for the worker.
		return p.finishFailed(ctx, job, fmt.Errorf("inspecting source: %w", err))
	}

	job.DurationSeconds = info.DurationSeconds
	job.Width = info.Width
	job.Height = info.Height

	plan := encode.SelectRenditions(info)
	job.Renditions = encode.Names(plan)
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("recording encode plan: %w", err)
	}

	log.Info("encode plan selected",
		slog.Any("renditions", job.Renditions),
		slog.Int("source_height", info.Height))

	artifacts, err := p.transcoder.Run(ctx, job.ID, job.SourcePath, info, plan, transcode.Callbacks{
		OnProgress: func(percent float64, message string) {
			if !job.SetProgress(percent, message) {
				return
			}
			if err := p.store.Update(ctx, job); err != nil {
				log.Warn("updating progress", slog.String("error", err.Error()))
			}
			p.notify(job)
		},
		Cancelled: func(ctx context.Context) (bool, error) {
			return p.store.IsCancelRequested(ctx, jobID)
		},
	})
	if err != nil {
		if errors.Is(err, transcode.ErrCancelled) {
			return p.finishCancelled(ctx, job)
		}
		var encErr *transcode.RenditionEncodeFailedError
		if errors.As(err, &encErr) {
			return p.finishFailed(ctx, job, err)
		}
		// Anything else is infrastructure trouble (store unreachable during
		// a cancel check, context cancelled on shutdown).
		return fmt.Errorf("transcoding: %w", err)
	}

	published := p.publishArtifacts(ctx, job, artifacts)

	job.MarkReady(artifacts)
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job ready: %w", err)
	}

	// Local files are only removed once every artifact lives in object
	// storage; otherwise the local paths remain the only copies.
	if published {
		p.removeOutputs(job.ID)
	}

	p.notify(job)
	p.mirror(ctx, job)

	log.Info("job ready",
		slog.Int("artifacts", len(artifacts)),
		slog.Bool("published", published))
	return nil
}

// publishArtifacts uploads each artifact, filling in its public URL, and
// reports whether every upload succeeded. A failed upload leaves the
// artifact on its local path; the job still becomes ready so the outputs
// are not lost.
func (p *Pipeline) publishArtifacts(ctx context.Context, job *models.Job, artifacts []models.Artifact) bool {
	if p.uploader == nil {
		return false
	}

	log := p.logger.With(slog.String("job_id", job.ID))
	all := true
	for i := range artifacts {
		key := job.ID + "/" + filepath.Base(artifacts[i].Path)
		url, err := p.uploader.Upload(ctx, artifacts[i].Path, key)
		if err != nil {
			log.Warn("publishing artifact failed, keeping local copy",
				slog.String("key", key),
				slog.String("error", err.Error()))
			all = false
			continue
		}
		artifacts[i].URL = url
	}
	return all
}

// finishFailed marks the job failed and removes its partial outputs.
func (p *Pipeline) finishFailed(ctx context.Context, job *models.Job, cause error) error {
	p.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("error", cause.Error()))

	p.removeOutputs(job.ID)

	job.MarkFailed(cause)
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job failed: %w", err)
	}
	p.notify(job)
	p.mirror(ctx, job)
	return nil
}

// finishCancelled removes the job's outputs and deletes its store record
// together with the cancel flag. The mirror row keeps the cancelled status
// for history.
func (p *Pipeline) finishCancelled(ctx context.Context, job *models.Job) error {
	p.logger.Info("job cancelled", slog.String("job_id", job.ID))

	p.removeOutputs(job.ID)

	job.MarkCancelled()
	if err := p.store.Delete(ctx, job.ID); err != nil {
		return fmt.Errorf("deleting cancelled job: %w", err)
	}
	p.notify(job)
	p.mirror(ctx, job)
	return nil
}

// removeOutputs deletes the job's output directory.
func (p *Pipeline) removeOutputs(jobID string) {
	dir := p.transcoder.OutputDir(jobID)
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("removing job outputs",
			slog.String("job_id", jobID),
			slog.String("dir", dir),
			slog.String("error", err.Error()))
	}
}

// notify broadcasts the job's current state.
func (p *Pipeline) notify(job *models.Job) {
	if p.events == nil {
		return
	}
	event := status.Event{
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		Message:         job.ProgressMessage,
		ErrorMessage:    job.ErrorMessage,
	}
	if job.Status == models.JobStatusReady {
		for _, a := range job.Artifacts {
			if a.URL != "" {
				event.Artifacts = append(event.Artifacts, a.URL)
			} else {
				event.Artifacts = append(event.Artifacts, a.Path)
			}
		}
	}
	p.events.Publish(event)
}

// mirror pushes the job state into the relational mirror. Mirror failures
// are logged but never fail the job; the store remains authoritative.
func (p *Pipeline) mirror(ctx context.Context, job *models.Job) {
	if p.videos == nil {
		return
	}
	log := p.logger.With(slog.String("job_id", job.ID))

	video, err := p.videos.GetByJobID(ctx, job.ID)
	if err != nil {
		log.Warn("loading video mirror", slog.String("error", err.Error()))
		return
	}
	if video == nil {
		log.Warn("no video mirror row for job")
		return
	}

	video.Status = job.Status
	video.ErrorMessage = job.ErrorMessage
	video.DurationSeconds = job.DurationSeconds
	video.Width = job.Width
	video.Height = job.Height

	if job.Status == models.JobStatusReady {
		if err := video.SetArtifacts(job.Artifacts); err != nil {
			log.Warn("encoding mirror artifacts", slog.String("error", err.Error()))
		}
		now := models.Now()
		video.PublishedAt = &now
	}

	if err := p.videos.Update(ctx, video); err != nil {
		log.Warn("updating video mirror", slog.String("error", err.Error()))
	}
}
