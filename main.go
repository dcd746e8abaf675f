package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/config"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/conversation"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/cube"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/export"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/handlers"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/logging"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/schema"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("cube_base_url", cfg.Cube.BaseURL),
		zap.String("cube_view", cfg.Cube.ViewName),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	cubeClient, err := cube.NewClient(&cube.Config{
		BaseURL:   cfg.Cube.BaseURL,
		APISecret: cfg.Cube.APISecret,
		Timeout:   time.Duration(cfg.Cube.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create cube client", zap.Error(err))
	}

	initCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Cube.TimeoutSeconds)*time.Second)
	if err := cubeClient.Ready(initCtx); err != nil {
		logger.Warn("Cube deployment not ready", zap.Error(err))
	}

	schemaStore := schema.NewStore(cubeClient, cfg.Cube.ViewName, cfg.Cube.FallbackSchemaPath, logger)
	if err := schemaStore.Init(initCtx); err != nil {
		cancel()
		logger.Fatal("Failed to load schema", zap.Error(err))
	}
	cancel()

	llmClient, err := llm.New(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	exporter, err := export.NewWriter(cfg.ResultsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create results dir", zap.Error(err))
	}

	sessions := conversation.NewStore(cfg.Resolution.MaxTurnHistory, logger)
	constructor := services.NewConstructor(llmClient, cfg.Resolution.MaxRetries, cfg.LLM.Temperature, logger)
	resolver := services.NewResolver(llmClient, schemaStore, sessions, constructor,
		cubeClient, exporter, cfg.LLM.Temperature, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(resolver, sessions, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaStore, sessions, llmClient, logger).RegisterRoutes(mux)
	handlers.NewDownloadHandler(exporter.Dir(), logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting cube-query-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
