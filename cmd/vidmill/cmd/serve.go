package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/vidmill/vidmill/internal/config"
	"github.com/vidmill/vidmill/internal/database"
	"github.com/vidmill/vidmill/internal/janitor"
	"github.com/vidmill/vidmill/internal/media"
	"github.com/vidmill/vidmill/internal/observability"
	"github.com/vidmill/vidmill/internal/publish"
	"github.com/vidmill/vidmill/internal/queue"
	"github.com/vidmill/vidmill/internal/repository"
	"github.com/vidmill/vidmill/internal/status"
	"github.com/vidmill/vidmill/internal/store"
	"github.com/vidmill/vidmill/internal/transcode"
	"github.com/vidmill/vidmill/internal/version"
	"github.com/vidmill/vidmill/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcode worker daemon",
	Long: `Start the vidmill worker daemon.

The daemon polls the job queue with a pool of workers, transcoding each
source into its planned renditions and publishing the results to object
storage. It also runs the janitor that reclaims expired job outputs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("workers", 0, "number of concurrent workers (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		if n, err := cmd.Flags().GetInt("workers"); err == nil && n > 0 {
			cfg.Worker.Count = n
		}
	}

	logger := slog.Default()

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "vidmill@" + version.Version,
		})
		if err != nil {
			return fmt.Errorf("initializing sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	redisClient, err := newRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	db, err := database.New(cfg.Database, observability.WithComponent(logger, "database"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	videoRepo := repository.NewVideoRepository(db.DB)

	jobQueue := queue.NewRedisQueue(redisClient, cfg.Store.KeyPrefix)
	jobStore := store.NewRedisStore(redisClient, cfg.Store.KeyPrefix, cfg.Store.TTL)
	broadcaster := status.NewBroadcaster(observability.WithComponent(logger, "status"))

	inspector := media.NewInspector(cfg.FFmpeg, cfg.Limits, cfg.Storage.MaxSourceSize.Bytes())
	executor := transcode.NewExecutor(cfg.FFmpeg, cfg.Storage.OutputDir).
		WithLogger(observability.WithComponent(logger, "transcode"))

	uploader, err := buildPublisher(cmd.Context(), cfg.Publish, logger)
	if err != nil {
		return err
	}

	pipeline := worker.NewPipeline(jobStore, inspector, executor, uploader, videoRepo, broadcaster).
		WithLogger(observability.WithComponent(logger, "pipeline"))

	pool := worker.NewPool(jobQueue, pipeline, cfg.Worker).
		WithLogger(observability.WithComponent(logger, "worker"))
	if cfg.Sentry.DSN != "" {
		pool.WithErrorReporter(func(err error) {
			sentry.CaptureException(err)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}

	var sweeper *janitor.Janitor
	if cfg.Janitor.Enabled {
		sweeper = janitor.New(jobStore, cfg.Storage.OutputDir, cfg.Store.TTL, cfg.Janitor).
			WithLogger(observability.WithComponent(logger, "janitor"))
		if err := sweeper.Start(ctx); err != nil {
			pool.Stop()
			return fmt.Errorf("starting janitor: %w", err)
		}
	}

	logger.Info("vidmill daemon started",
		slog.String("version", version.Version),
		slog.Int("workers", cfg.Worker.Count),
		slog.String("output_dir", cfg.Storage.OutputDir))

	<-ctx.Done()

	logger.Info("shutting down, waiting for in-flight jobs")
	if sweeper != nil {
		sweeper.Stop()
	}
	pool.Stop()

	logger.Info("vidmill daemon stopped")
	return nil
}

// buildPublisher assembles the fallback chain of configured publish targets.
// It returns nil when no target is enabled; jobs then keep local artifact
// paths only.
func buildPublisher(ctx context.Context, cfg config.Publish, logger *slog.Logger) (worker.Uploader, error) {
	var targets []publish.Publisher

	if cfg.S3.Enabled {
		s3Pub, err := publish.NewS3Publisher(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("configuring s3 publisher: %w", err)
		}
		targets = append(targets, s3Pub)
	}
	if cfg.Minio.Enabled {
		minioPub, err := publish.NewMinioPublisher(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("configuring minio publisher: %w", err)
		}
		targets = append(targets, minioPub)
	}

	if len(targets) == 0 {
		logger.Warn("no publish targets enabled, artifacts stay on local disk")
		return nil, nil
	}
	return publish.NewChain(observability.WithComponent(logger, "publish"), targets...), nil
}
