package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/config"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/connections"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/platform"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/publisher"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/queue"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/resilience"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage/sqlite"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "acrylican-worker",
		Short: "Background queue worker for Acrylican",
		Long: `Drains the publishing queue on a fixed interval, dispatching due
posts to their target platforms. Run as a service for autonomous operation.`,
		RunE: runWorker,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting Acrylican queue worker")

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	go startHealthServer(cfg.Worker.HealthPort)

	// Platform adapters
	registry := platform.NewRegistry()
	for _, name := range cfg.Platforms.Enabled {
		registry.Register(platform.NewSandbox(name))
	}

	// Resilience machinery: one breaker set and retry executor shared by
	// every dispatch, injected rather than process-global so tests can
	// build isolated instances.
	classifier := resilience.NewClassifier()
	breakers := resilience.NewBreakerSet(resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		Cooldown:         cfg.Resilience.Cooldown,
	}, log)
	retry := resilience.NewExecutor(classifier, breakers, log)

	limiter := ratelimit.NewPlatformLimiter(
		cfg.Platforms.Enabled,
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.Burst,
	)

	connStore := connections.NewStore(repo)
	dispatcher := publisher.NewDispatcher(registry, connStore, retry, classifier, limiter, log)

	processor := queue.NewProcessor(repo, dispatcher, queue.Options{
		Interval:    cfg.Queue.Interval,
		BatchSize:   cfg.Queue.BatchSize,
		BackoffBase: cfg.Queue.BackoffBase,
		StaleAfter:  cfg.Queue.StaleAfter,
	}, log)

	// Recover items stuck in processing from a previous ungraceful shutdown
	recovered, err := processor.ReconcileStale(context.Background())
	if err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}
	if recovered > 0 {
		log.Warn().Int("items", recovered).Msg("Recovered stale processing items")
	}

	if err := processor.Start(); err != nil {
		return fmt.Errorf("failed to start queue processor: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down worker")
	processor.Stop()

	return nil
}

// startHealthServer starts a simple HTTP server for liveness checks
func startHealthServer(port string) {
	if env := os.Getenv("PORT"); env != "" {
		port = env
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Acrylican Queue Worker"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
