package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/complyforge/complyforge/ai/anthropic"
	"github.com/complyforge/complyforge/ai/breaker"
	"github.com/complyforge/complyforge/ai/gemini"
	"github.com/complyforge/complyforge/ai/openai"
	"github.com/complyforge/complyforge/ai/provider"
	"github.com/complyforge/complyforge/audit"
	"github.com/complyforge/complyforge/config"
	"github.com/complyforge/complyforge/docstore"
	"github.com/complyforge/complyforge/generation"
	"github.com/complyforge/complyforge/guardrails"
	"github.com/complyforge/complyforge/logger"
	"github.com/complyforge/complyforge/quality"
	"github.com/complyforge/complyforge/server"
)

const shutdownTimeout = 15 * time.Second

// ServeCmd starts the generation engine and HTTP API.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the generation engine and HTTP API",
	Long: `Start the generation engine in foreground mode.

The engine will:
- Start the job worker pool and recover orphaned jobs
- Register the Anthropic, OpenAI and Gemini provider adapters
- Serve the generation API and WebSocket job updates
- Run until interrupted (Ctrl+C) with graceful shutdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Engine.Workers = workers
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		log := logger.Logger

		sink := audit.NewSQLSink(database)
		checker := guardrails.NewChecker(guardrails.Config{
			MaxContentBytes: cfg.Guardrails.MaxContentBytes,
			BlockSeverity:   cfg.Guardrails.BlockSeverity,
		}, sink, log)
		docs := docstore.NewSQLStore(database)
		scorer := quality.NewScorer(log)

		registry, err := buildProviderRegistry(cfg)
		if err != nil {
			return err
		}

		executor := provider.NewExecutor(registry, callTimeout(cfg), buildLimiter(cfg), log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		handlers := generation.NewHandlerRegistry()
		pool := generation.NewWorkerPool(ctx, database, generation.WorkerPoolConfig{
			Workers:      cfg.Engine.Workers,
			PollInterval: time.Duration(cfg.Engine.PollIntervalSeconds) * time.Second,
		}, handlers, log)
		queue := pool.GetQueue()

		handler := generation.NewGenerateHandler(queue, executor, checker, docs, scorer, sink, log)
		if err := handlers.Register(handler); err != nil {
			return fmt.Errorf("failed to register generation handler: %w", err)
		}

		engine := generation.NewEngine(queue, docs, log)

		pool.Start()

		// Guardrail thresholds follow the config file without a restart.
		var watcher *config.Watcher
		if configPath != "" {
			watcher, err = config.NewWatcher(configPath, log)
			if err != nil {
				log.Warnw("Config watcher unavailable", "path", configPath, "error", err)
			} else {
				watcher.OnReload(func(next *config.Config) error {
					checker.UpdateConfig(guardrails.Config{
						MaxContentBytes: next.Guardrails.MaxContentBytes,
						BlockSeverity:   next.Guardrails.BlockSeverity,
					})
					return nil
				})
				watcher.Start()
			}
		}

		srv := server.New(ctx, cfg.Server.Port, engine, pool, sink, log)

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- srv.Start()
		}()

		pterm.Success.Printf("complyd started\n")
		pterm.Info.Printf("  API:        http://localhost:%d\n", cfg.Server.Port)
		pterm.Info.Printf("  WebSocket:  ws://localhost:%d/ws\n", cfg.Server.Port)
		pterm.Info.Printf("  Workers:    %d\n", pool.Workers())
		pterm.Info.Printf("  Database:   %s\n", cfg.Database.Path)
		pterm.Info.Printf("  Providers:  %v\n", registry.FallbackChain())
		fmt.Println("\nPress Ctrl+C for graceful shutdown")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigChan:
			log.Infow("Shutdown signal received", "signal", sig.String())
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("HTTP server shutdown error", "error", err)
		}
		pool.Stop()
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				log.Warnw("Config watcher shutdown error", "error", err)
			}
		}
		cancel()

		pterm.Success.Println("complyd stopped")
		return nil
	},
}

// buildProviderRegistry registers the provider adapters in fallback order.
// Registration order is the order the executor tries providers after the
// selected one fails.
func buildProviderRegistry(cfg *config.Config) (*provider.Registry, error) {
	opts := breaker.DefaultOptions()
	if cfg.Engine.BreakerThreshold > 0 {
		opts.Threshold = cfg.Engine.BreakerThreshold
	}
	if cfg.Engine.BreakerCooldownSecs > 0 {
		opts.Cooldown = time.Duration(cfg.Engine.BreakerCooldownSecs) * time.Second
	}

	registry := provider.NewRegistry(opts)

	clients := []provider.Generator{
		anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Anthropic.Temperature,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Logger:      logger.Logger,
		}),
		openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Logger:      logger.Logger,
		}),
		gemini.NewClient(gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Logger:      logger.Logger,
		}),
	}
	for _, client := range clients {
		if err := registry.Register(client); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", client.ID(), err)
		}
	}
	return registry, nil
}

func callTimeout(cfg *config.Config) time.Duration {
	if cfg.Engine.CallTimeoutSeconds > 0 {
		return time.Duration(cfg.Engine.CallTimeoutSeconds) * time.Second
	}
	return 90 * time.Second
}

// buildLimiter converts the per-minute config into a token bucket. A zero
// rate disables limiting.
func buildLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Engine.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.Engine.RequestBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Engine.RequestsPerMinute/60.0), burst)
}

func init() {
	ServeCmd.Flags().String("config", "", "Path to config file")
	ServeCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	ServeCmd.Flags().Int("workers", 0, "Number of concurrent job workers (overrides config)")
}
