package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openagora/agora/internal/agents"
	"github.com/openagora/agora/internal/config"
	"github.com/openagora/agora/internal/debate"
	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/provider/openai"
	"github.com/openagora/agora/internal/search"
	"github.com/openagora/agora/internal/server"
	"github.com/openagora/agora/internal/storage"
	"github.com/openagora/agora/internal/storage/sqlite"
	"github.com/openagora/agora/internal/telemetry"
	"github.com/openagora/agora/internal/tokens"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("agora", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	executor := newProvider(cfg.Executor)
	utilityProvider := newProvider(cfg.Utility)

	services := map[string]agents.Service{
		"executor": {Provider: executor, Model: cfg.Executor.Model},
		"utility":  {Provider: utilityProvider, Model: cfg.Utility.Model},
	}

	managerOpts := []agents.ManagerOption{agents.WithLogger(logger)}
	if cfg.Search.Endpoint != "" {
		retriever := search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.Index,
			search.WithLogger(logger),
			search.WithSemanticConfiguration(cfg.Search.SemanticConfiguration),
			search.WithVectorField(cfg.Search.VectorField),
			search.WithTop(cfg.Search.Top),
		)
		managerOpts = append(managerOpts, agents.WithRetriever(retriever))
		logger.Info("retrieval enabled", slog.String("index", cfg.Search.Index))
	}

	manager := agents.NewManager(services, managerOpts...)
	if _, err := manager.LoadDirectory(cfg.Agents.Directory); err != nil {
		log.Fatalf("Failed to load agents: %v", err)
	}

	orchestrator := debate.New(manager, services["utility"],
		debate.WithLogger(logger),
		debate.WithTokenRegistry(tokens.NewRegistry()),
		debate.WithMaxIterations(cfg.Debate.MaxIterations),
		debate.WithScoreThreshold(float64(cfg.Debate.ScoreThreshold)),
	)

	var store storage.HistoryStore
	if cfg.Storage.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Storage.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("Failed to create storage directory: %v", err)
			}
		}
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer store.Close()
		logger.Info("history storage enabled", slog.String("path", cfg.Storage.SQLite.Path))
	}

	srv := server.New(cfg.Server.Port, logger)
	handler := server.NewHandler(orchestrator, store, logger)
	handler.Register(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping server...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}

func newProvider(cfg config.ModelConfig) domain.Provider {
	var opts []openai.ProviderOption
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithProviderBaseURL(cfg.BaseURL))
	}
	return openai.New(cfg.APIKey, opts...)
}
