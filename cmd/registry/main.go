package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcpserverslist/registry/internal/ai"
	"github.com/mcpserverslist/registry/internal/api"
	"github.com/mcpserverslist/registry/internal/cache"
	"github.com/mcpserverslist/registry/internal/config"
	"github.com/mcpserverslist/registry/internal/database"
	ghclient "github.com/mcpserverslist/registry/internal/github"
	"github.com/mcpserverslist/registry/internal/jobs"
	"github.com/mcpserverslist/registry/internal/ratelimit"
	"github.com/mcpserverslist/registry/internal/service"
	"github.com/mcpserverslist/registry/internal/telemetry"
	"github.com/mcpserverslist/registry/internal/workflow"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("registry exited with error")
	}
}

func run(logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()
	logger.Info().Str("version", cfg.Version).Msg("starting MCP servers directory")

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shut down metrics")
		}
	}()

	db, err := database.NewPostgreSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	generator, err := ai.NewGenerator(cfg)
	if err != nil {
		return err
	}

	enrichment := workflow.NewEnrichment(
		db,
		ghclient.NewClient(ctx, cfg.GithubToken),
		generator,
		logger.With().Str("component", "workflow").Logger(),
		metrics,
	)

	runner := jobs.NewRunner(
		cfg.JobWorkers,
		cfg.JobMaxRetries,
		logger.With().Str("component", "jobs").Logger(),
		jobs.WithCompletionHooks(
			func(ctx context.Context) { metrics.JobsProcessed.Add(ctx, 1) },
			func(ctx context.Context) { metrics.JobsFailed.Add(ctx, 1) },
		),
	)
	runner.Register(workflow.EventServerCreated, enrichment.HandleEvent)
	runner.Start(ctx)
	defer runner.Stop()

	directory := service.NewDirectoryService(
		db,
		cache.New(cfg.CacheTTL),
		ratelimit.New(cfg.SubmissionRateLimit, cfg.SubmissionRateWindow),
		runner,
		metrics,
		logger.With().Str("component", "service").Logger(),
	)

	server := api.NewServer(cfg, directory, metrics, logger.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
