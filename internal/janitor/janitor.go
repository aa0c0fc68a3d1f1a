// Package janitor reclaims disk space from jobs whose retention window has
// passed.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vidmill/vidmill/internal/config"
	"github.com/vidmill/vidmill/internal/store"
)

// Janitor periodically sweeps the output root, deleting directories for
// jobs whose store records have expired, and clears terminal records that
// outlived the store retention. The grace period protects outputs that were
// just written but not yet recorded.
type Janitor struct {
	store      store.Store
	outputRoot string
	ttl        time.Duration
	grace      time.Duration
	spec       string
	logger     *slog.Logger

	cron *cron.Cron
}

// New creates a janitor over the given output root. ttl is the store's
// record retention; zero disables the record sweep.
func New(jobStore store.Store, outputRoot string, ttl time.Duration, cfg config.Janitor) *Janitor {
	return &Janitor{
		store:      jobStore,
		outputRoot: outputRoot,
		ttl:        ttl,
		grace:      cfg.Grace,
		spec:       cfg.Cron,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (j *Janitor) WithLogger(logger *slog.Logger) *Janitor {
	j.logger = logger
	return j
}

// Start schedules the sweep on the configured cron expression. The
// expression uses six fields with a leading seconds field.
func (j *Janitor) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(j.spec, func() {
		if err := j.Sweep(ctx); err != nil {
			j.logger.Error("sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling sweep %q: %w", j.spec, err)
	}

	c.Start()
	j.cron = c

	j.logger.Info("janitor started",
		slog.String("cron", j.spec),
		slog.Duration("grace", j.grace))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.cron = nil
	}
	j.logger.Info("janitor stopped")
}

// Sweep runs one pass: output directories without a live record are
// removed, then terminal records past the retention window are deleted.
func (j *Janitor) Sweep(ctx context.Context) error {
	if err := j.sweepOutputs(ctx); err != nil {
		return err
	}
	return j.sweepRecords(ctx)
}

// sweepOutputs removes directories whose job record is gone and whose
// contents are older than the grace period.
func (j *Janitor) sweepOutputs(ctx context.Context) error {
	entries, err := os.ReadDir(j.outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading output root: %w", err)
	}

	var removed int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		jobID := entry.Name()

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < j.grace {
			continue
		}

		_, err = j.store.Get(ctx, jobID)
		if err == nil {
			// Record still live; the outputs stay.
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checking job %s: %w", jobID, err)
		}

		dir := filepath.Join(j.outputRoot, jobID)
		if err := os.RemoveAll(dir); err != nil {
			j.logger.Warn("removing expired outputs",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		removed++
		j.logger.Info("removed expired outputs", slog.String("job_id", jobID))
	}

	if removed > 0 {
		j.logger.Info("output sweep complete", slog.Int("removed", removed))
	}
	return nil
}

// sweepRecords deletes terminal job records that outlived the retention
// window. The store's own TTL normally expires them; this catches records
// whose expiry was lost.
func (j *Janitor) sweepRecords(ctx context.Context) error {
	if j.ttl <= 0 {
		return nil
	}

	jobs, err := j.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing job records: %w", err)
	}

	var removed int
	for _, job := range jobs {
		if !job.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if time.Since(*job.CompletedAt) < j.ttl+j.grace {
			continue
		}
		if err := j.store.Delete(ctx, job.ID); err != nil {
			j.logger.Warn("deleting stale record",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("record sweep complete", slog.Int("removed", removed))
	}
	return nil
}
