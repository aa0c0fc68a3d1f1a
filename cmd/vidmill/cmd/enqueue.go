package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vidmill/vidmill/internal/database"
	"github.com/vidmill/vidmill/internal/ingest"
	"github.com/vidmill/vidmill/internal/observability"
	"github.com/vidmill/vidmill/internal/queue"
	"github.com/vidmill/vidmill/internal/repository"
	"github.com/vidmill/vidmill/internal/store"
)

var (
	enqueueOwner string
	enqueueTitle string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <source-file>",
	Short: "Queue a video for transcoding",
	Long: `Create a transcode job for a source file and enqueue it for the
worker pool. Prints the job ID to track with the status command.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringVar(&enqueueOwner, "owner", "", "owner identifier for the upload (required)")
	enqueueCmd.Flags().StringVar(&enqueueTitle, "title", "", "human-readable title")
	_ = enqueueCmd.MarkFlagRequired("owner")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourcePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving source path: %w", err)
	}

	redisClient, err := newRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	logger := slog.Default()
	db, err := database.New(cfg.Database, observability.WithComponent(logger, "database"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	svc := ingest.NewService(
		store.NewRedisStore(redisClient, cfg.Store.KeyPrefix, cfg.Store.TTL),
		queue.NewRedisQueue(redisClient, cfg.Store.KeyPrefix),
		repository.NewVideoRepository(db.DB),
		nil,
	).WithLogger(observability.WithComponent(logger, "ingest"))

	job, err := svc.Enqueue(cmd.Context(), enqueueOwner, sourcePath, enqueueTitle)
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", sourcePath, err)
	}

	fmt.Println(job.ID)
	return nil
}
