package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidmill/vidmill/internal/ingest"
	"github.com/vidmill/vidmill/internal/store"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a job",
	Long: `Request cancellation of a queued or processing job.

Cancellation is asynchronous: a queued job is cancelled when a worker
dequeues it, a processing job at its next checkpoint between renditions.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	redisClient, err := newRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	svc := ingest.NewService(
		store.NewRedisStore(redisClient, cfg.Store.KeyPrefix, cfg.Store.TTL),
		nil, nil, nil,
	)

	job, err := svc.Cancel(cmd.Context(), args[0])
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("job %s not found (unknown ID or expired record)", args[0])
		case errors.Is(err, ingest.ErrAlreadyTerminal):
			return fmt.Errorf("job %s already %s", args[0], job.Status)
		}
		return fmt.Errorf("requesting cancel: %w", err)
	}

	fmt.Printf("cancellation requested for job %s (currently %s)\n", job.ID, job.Status)
	return nil
}
