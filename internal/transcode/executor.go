// Package transcode runs the per-job encode work: one ffmpeg invocation per
// rendition plus thumbnail and preview generation.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidmill/vidmill/internal/config"
	"github.com/vidmill/vidmill/internal/encode"
	"github.com/vidmill/vidmill/internal/media"
	"github.com/vidmill/vidmill/internal/models"
)

// encodeFunc runs one ffmpeg encode. onProgress receives the fraction of
// the source duration processed so far, in [0, 1].
type encodeFunc func(ctx context.Context, args []string, durationSeconds float64, onProgress func(float64)) error

// frameGrabFunc runs one ffmpeg frame grab.
type frameGrabFunc func(ctx context.Context, args []string) error

// Callbacks carries the per-job hooks the worker wires into a run.
type Callbacks struct {
	// OnProgress receives the overall job percent (0-100) and a short stage
	// description such as "encoding 720p". It is called during each encode
	// and after each rendition completes. May be nil.
	OnProgress func(percent float64, message string)

	// Cancelled reports whether the owner has requested cancellation. It is
	// consulted before the first rendition and after each one; a pending
	// encode is always allowed to finish. May be nil.
	Cancelled func(ctx context.Context) (bool, error)
}

// Executor encodes a source into its planned renditions.
type Executor struct {
	ffmpegPath string
	preset     string
	outputRoot string
	logger     *slog.Logger

	encode encodeFunc
	grab   frameGrabFunc
}

// NewExecutor creates an executor using the configured ffmpeg binary.
func NewExecutor(cfg config.FFmpeg, outputRoot string) *Executor {
	e := &Executor{
		ffmpegPath: cfg.BinaryPath,
		preset:     cfg.Preset,
		outputRoot: outputRoot,
		logger:     slog.Default(),
	}
	e.encode = e.runEncode
	e.grab = e.runFrameGrab
	return e
}

// WithLogger sets a custom logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// withHooks overrides the external command hooks. Used in tests.
func (e *Executor) withHooks(enc encodeFunc, grab frameGrabFunc) *Executor {
	if enc != nil {
		e.encode = enc
	}
	if grab != nil {
		e.grab = grab
	}
	return e
}

// OutputDir returns the output directory for a job.
func (e *Executor) OutputDir(jobID string) string {
	return filepath.Join(e.outputRoot, jobID)
}

// Run encodes every rendition of the plan in order, generating the thumbnail
// and preview first. It returns the artifacts written so far together with
// ErrCancelled or a RenditionEncodeFailedError when the run stops early.
func (e *Executor) Run(ctx context.Context, jobID, sourcePath string, info *media.MediaInfo, plan []encode.Rendition, cb Callbacks) ([]models.Artifact, error) {
	outDir := e.OutputDir(jobID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	if stop, err := e.checkCancel(ctx, cb); stop || err != nil {
		if err != nil {
			return nil, err
		}
		return nil, ErrCancelled
	}

	artifacts, err := e.generateImages(ctx, sourcePath, outDir, info.DurationSeconds)
	if err != nil {
		return nil, err
	}

	total := len(plan)
	for idx, rendition := range plan {
		if stop, err := e.checkCancel(ctx, cb); stop || err != nil {
			if err != nil {
				return artifacts, err
			}
			return artifacts, ErrCancelled
		}

		outPath := filepath.Join(outDir, rendition.Name+".mp4")
		args := e.buildEncodeArgs(sourcePath, outPath, rendition)

		e.logger.Info("encoding rendition",
			slog.String("job_id", jobID),
			slog.String("rendition", rendition.Name),
			slog.Int("width", rendition.Width),
			slog.Int("height", rendition.Height))

		completed := idx
		stage := "encoding " + rendition.Name
		onProgress := func(fraction float64) {
			if cb.OnProgress == nil {
				return
			}
			if fraction < 0 {
				fraction = 0
			}
			if fraction > 1 {
				fraction = 1
			}
			cb.OnProgress((float64(completed)+fraction)/float64(total)*100, stage)
		}

		if err := e.encode(ctx, args, info.DurationSeconds, onProgress); err != nil {
			return artifacts, &RenditionEncodeFailedError{Rendition: rendition.Name, Cause: err}
		}

		artifact := models.Artifact{
			Rendition:    rendition.Name,
			Kind:         models.ArtifactVideo,
			Path:         outPath,
			VideoBitrate: rendition.VideoBitrate,
		}
		if fi, err := os.Stat(outPath); err == nil {
			artifact.SizeBytes = fi.Size()
		}
		artifacts = append(artifacts, artifact)

		if cb.OnProgress != nil {
			cb.OnProgress(float64(idx+1)/float64(total)*100, "finished "+rendition.Name)
		}

		if stop, err := e.checkCancel(ctx, cb); stop || err != nil {
			if err != nil {
				return artifacts, err
			}
			return artifacts, ErrCancelled
		}
	}

	return artifacts, nil
}

// checkCancel consults the cancellation hook if one is set. A dead context
// is a daemon shutdown, not an owner cancellation, and is returned as an
// error so the job is not falsely reported cancelled.
func (e *Executor) checkCancel(ctx context.Context, cb Callbacks) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if cb.Cancelled == nil {
		return false, nil
	}
	cancelled, err := cb.Cancelled(ctx)
	if err != nil {
		return false, fmt.Errorf("checking cancellation: %w", err)
	}
	return cancelled, nil
}

// buildEncodeArgs assembles the ffmpeg arguments for one rendition.
func (e *Executor) buildEncodeArgs(sourcePath, outPath string, r encode.Rendition) []string {
	videoKbps := r.VideoBitrate / 1000
	audioKbps := r.AudioBitrate / 1000

	return []string{
		"-y",
		"-i", sourcePath,
		"-c:v", "libx264",
		"-preset", e.preset,
		"-b:v", fmt.Sprintf("%dk", videoKbps),
		"-maxrate", fmt.Sprintf("%dk", videoKbps),
		"-bufsize", fmt.Sprintf("%dk", videoKbps*2),
		"-vf", fmt.Sprintf("scale=%d:%d", r.Width, r.Height),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", audioKbps),
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		outPath,
	}
}
