package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autoops/engine/api/rest"
	"autoops/engine/internal/config"
	"autoops/engine/internal/engine"
	"autoops/engine/internal/events"
	"autoops/engine/internal/kube"
	"autoops/engine/internal/planner"
	"autoops/engine/internal/store"
	"autoops/engine/pkg/logger"
)

var (
	serveAddress string
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestration engine and its REST API",
	Long: `Start the engine: a bounded worker pool that plans and executes
submitted tasks, plus the REST API and WebSocket event stream.

Planning uses the configured LLM when an API key is set, and falls back
to the deterministic rule planner otherwise.`,
	Example: `  # Run with defaults
  autoops serve

  # Custom listen address and worker count
  autoops serve --address :9090 --workers 20

  # With a configuration file
  autoops serve --config config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddress, "address", ":8080", "HTTP listen address")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 10, "worker pool size")
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cmd.Flags().Changed("address") {
		cfg.Server.Address = serveAddress
	}
	if cmd.Flags().Changed("workers") {
		cfg.Engine.Workers = serveWorkers
	}

	if debug {
		logger.SetLevel(logger.LevelDebug)
	} else {
		logger.SetLevelFromString(cfg.Logging.Level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskStore := store.New(cfg.Engine.DefaultTimeout)
	bus := events.NewBus()
	collector := events.NewCollector(bus, taskStore, nil)

	taskPlanner, err := buildPlanner(ctx, cfg)
	if err != nil {
		return err
	}

	kubeClient := kube.NewClient(kube.Config{
		BaseURL:     cfg.Kubernetes.APIServer,
		BearerToken: cfg.Kubernetes.BearerToken,
		Namespace:   cfg.Kubernetes.Namespace,
		InsecureTLS: cfg.Kubernetes.InsecureTLS,
		Timeout:     cfg.Kubernetes.RequestTimeout,
	})

	eng := engine.New(engine.Config{
		Workers:         cfg.Engine.Workers,
		DefaultTimeout:  cfg.Engine.DefaultTimeout,
		MaxRetries:      cfg.Engine.MaxRetries,
		BackoffBase:     cfg.Engine.BackoffBase,
		BackoffMax:      cfg.Engine.BackoffMax,
		MetricsInterval: cfg.Engine.MetricsInterval,
		TaskRetention:   cfg.Engine.TaskRetention,
	}, taskStore, bus, collector, taskPlanner, kube.NewExecutor(kubeClient))

	server := rest.NewServer(eng, &rest.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		EnableCORS:   cfg.Server.EnableCORS,
		EnableEvents: cfg.Server.EnableEvents,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := eng.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	if !quiet {
		fmt.Printf("autoops %s listening on %s (%d workers)\n",
			Version, cfg.Server.Address, cfg.Engine.Workers)
	}

	if err := server.StartWithContext(ctx); err != nil {
		cancel()
		stopEngine(eng)
		return fmt.Errorf("serve: %w", err)
	}

	return stopEngine(eng)
}

func stopEngine(eng *engine.Engine) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}
	return nil
}

// buildPlanner picks the LLM planner when credentials exist, the rule
// planner otherwise.
func buildPlanner(ctx context.Context, cfg *config.Config) (engine.Planner, error) {
	if cfg.Planner.APIKey == "" {
		logger.Info("no planner API key configured, using the rule-based planner")
		return planner.NewRulePlanner(cfg.Kubernetes.Namespace), nil
	}

	p, err := planner.NewLLMPlanner(ctx, planner.Config{
		Provider:    cfg.Planner.Provider,
		Model:       cfg.Planner.Model,
		APIKey:      cfg.Planner.APIKey,
		BaseURL:     cfg.Planner.BaseURL,
		Temperature: cfg.Planner.Temperature,
		Timeout:     cfg.Planner.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create planner: %w", err)
	}
	logger.Info("planner: %s/%s", cfg.Planner.Provider, cfg.Planner.Model)
	return p, nil
}
