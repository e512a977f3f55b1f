package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deedscope/deedscope/internal/cache"
	"github.com/deedscope/deedscope/internal/httpapi"
	"github.com/deedscope/deedscope/internal/job"
	"github.com/deedscope/deedscope/internal/pipeline"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Deedscope HTTP API server",
	Long: `Serve exposes the job API: submit an analysis, poll its progress and
result, list recent jobs, and cancel. Jobs run through the same pipeline
as the search command.

With redis.addr configured, jobs are persisted in Redis and survive
restarts; otherwise an in-memory store is used.

Example:
  deedscope serve
  deedscope serve --addr :9090
  DEEDSCOPE_DEMO=true deedscope serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logger := newLogger()
	health := cache.NewHealthCache(time.Hour)

	p, err := pipeline.New(cfg, health, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	var store job.Store
	if cfg.Redis.Addr != "" {
		redisStore, err := job.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis job store: %w", err)
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("using redis job store", "addr", cfg.Redis.Addr)
	} else {
		store = job.NewMemoryStore()
		logger.Info("using in-memory job store")
	}

	workflow := job.NewWorkflowClient(cfg.Workflow, logger)
	if workflow.Enabled() {
		logger.Info("durable workflow engine configured", "event_url", cfg.Workflow.EventURL)
	}

	orchestrator := job.NewOrchestrator(store, p, workflow, cfg.Retrieval.PipelineCeiling, logger)
	server := httpapi.NewServer(orchestrator, store, health, logger)

	if cfg.Demo {
		logger.Warn("demonstration mode enabled; reports use simulated data")
	}

	err = server.ListenAndServe(ctx, addr)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
