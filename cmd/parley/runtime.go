package main

import (
	"context"
	"fmt"

	"parley/internal/agent"
	"parley/internal/agent/ports"
	"parley/internal/config"
	"parley/internal/history"
	"parley/internal/llm"
	"parley/internal/logging"
	"parley/internal/session/filestore"
	"parley/internal/session/postgresstore"
	"parley/internal/tools"
	"parley/internal/tools/builtin"
)

// runtime bundles the wired agent components for a command.
type runtime struct {
	coordinator *agent.Coordinator
	store       ports.SessionStore
	logger      logging.Logger
}

func (r *runtime) Close() {
	if closer, ok := r.store.(interface{ Close() }); ok {
		closer.Close()
	}
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logging.NewComponentLogger("llm"))
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return buildRuntimeWithClient(ctx, cfg, client)
}

func buildRuntimeWithClient(ctx context.Context, cfg *config.Config, client ports.LLMClient) (*runtime, error) {
	logger := logging.NewComponentLogger("parley")

	store, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg.Tools, logger)
	if err != nil {
		return nil, err
	}

	executor := tools.NewExecutor(registry,
		tools.WithCallTimeout(cfg.Tools.CallTimeout),
		tools.WithParallelism(cfg.Tools.Parallelism),
		tools.WithLogger(logging.NewComponentLogger("tools")),
	)
	engine := agent.NewEngine(client, executor,
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithEngineLogger(logging.NewComponentLogger("engine")),
	)
	manager := history.NewManager(store,
		history.WithWindow(cfg.Agent.HistoryWindow),
		history.WithLogger(logging.NewComponentLogger("history")),
	)
	coordinator := agent.NewCoordinator(manager, engine, logging.NewComponentLogger("agent"))

	return &runtime{coordinator: coordinator, store: store, logger: logger}, nil
}

func buildStore(ctx context.Context, cfg config.StorageConfig) (ports.SessionStore, error) {
	switch cfg.Backend {
	case "postgres":
		store, err := postgresstore.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return store, nil
	case "file", "":
		store, err := filestore.New(cfg.Dir, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func buildRegistry(cfg config.ToolsConfig, logger logging.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if err := registry.Register(builtin.NewHumanAssistance()); err != nil {
		return nil, err
	}
	if err := registry.Register(builtin.NewWebFetch()); err != nil {
		return nil, err
	}
	if cfg.TavilyAPIKey != "" {
		if err := registry.Register(builtin.NewTavilySearch(cfg.TavilyAPIKey, cfg.MaxResults)); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("TAVILY_API_KEY not set, tavily_search disabled")
	}
	if cfg.SerperAPIKey != "" {
		if err := registry.Register(builtin.NewGoogleSearch(cfg.SerperAPIKey)); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("SERPER_API_KEY not set, google_search disabled")
	}

	return registry, nil
}
