package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidmill/vidmill/internal/ingest"
	"github.com/vidmill/vidmill/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	job, err := svc.Status(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("job %s not found (unknown ID or expired record)", args[0])
		}
		return fmt.Errorf("fetching status: %w", err)
	}

	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
