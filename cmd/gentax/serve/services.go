package servecmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gentaxai/gentax/api"
	apimcp "github.com/gentaxai/gentax/api/mcp"
	"github.com/gentaxai/gentax/pkg/config"
	"github.com/gentaxai/gentax/pkg/conversation"
	eventstreamutils "github.com/gentaxai/gentax/pkg/eventstream/utils"
	"github.com/gentaxai/gentax/pkg/eventstream/worker"
	inferenceutils "github.com/gentaxai/gentax/pkg/inference/utils"
	"github.com/gentaxai/gentax/pkg/retrieval"
	retrievalutils "github.com/gentaxai/gentax/pkg/retrieval/utils"
	"github.com/gentaxai/gentax/pkg/session"
	sessionutils "github.com/gentaxai/gentax/pkg/session/utils"
	"github.com/gentaxai/gentax/pkg/tokens"
)

// services is everything "gentax serve" wires together.
type services struct {
	store   *session.Store
	events  *worker.Pool
	engine  *conversation.Engine
	api     *api.Server
	watcher retrieval.Watcher
	logger  *slog.Logger
}

func newServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	svc := &services{logger: logger}

	driver, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{
		ProviderType: cfg.Storage.Provider,
		Path:         cfg.Storage.Path,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		RedisAddr:    cfg.Storage.RedisAddr,
		RedisPrefix:  cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	svc.store = session.NewStore(driver,
		session.WithPreamble(cfg.Conversation.SystemPrompt),
		session.WithLogger(logger),
	)
	if err := svc.store.Load(ctx); err != nil {
		_ = svc.store.Close()
		return nil, err
	}
	logger.Info("session store ready",
		"provider", cfg.Storage.Provider,
		"sessions", len(svc.store.List()),
	)

	retriever, watcher, err := retrievalutils.NewGateway(&retrievalutils.NewGatewayOpts{
		ProviderType: cfg.Retrieval.Provider,
		KnowledgeDir: cfg.Retrieval.KnowledgeDir,
		Endpoint:     cfg.Retrieval.Endpoint,
		Watch:        cfg.Retrieval.Watch,
		CacheSize:    cfg.Retrieval.CacheSize,
		CacheTTL:     cfg.Retrieval.CacheTTLDuration(),
		Logger:       logger,
	})
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("creating retrieval gateway: %w", err)
	}
	svc.watcher = watcher

	gateway, err := inferenceutils.NewGateway(&inferenceutils.NewGatewayOpts{
		ProviderType: cfg.Inference.Provider,
		BaseURL:      cfg.Inference.BaseURL,
		APIKey:       cfg.Inference.APIKey,
		Model:        cfg.Inference.Model,
		Temperature:  cfg.Inference.Temperature,
		MaxTokens:    cfg.Inference.MaxTokens,
	})
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("creating inference gateway: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.BrokerList(),
		Topic:        cfg.Events.Topic,
	})
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	svc.events, err = worker.NewPool(&worker.Config{Publisher: publisher, Logger: logger})
	if err != nil {
		_ = publisher.Close()
		svc.close()
		return nil, err
	}

	svc.engine, err = conversation.New(svc.store, retriever, gateway,
		conversation.Config{
			TopK:             cfg.Retrieval.TopK,
			RetrievalTimeout: cfg.Retrieval.TimeoutDuration(),
			InferenceTimeout: cfg.Inference.TimeoutDuration(),
			TokenBudget:      cfg.Conversation.TokenBudget,
		},
		conversation.WithLogger(logger),
		conversation.WithPublisher(svc.events),
		conversation.WithCounter(tokens.New(tokens.DefaultEncoding, logger)),
	)
	if err != nil {
		svc.close()
		return nil, err
	}

	mcpServer, err := apimcp.NewServer(apimcp.Config{Engine: svc.engine, Logger: logger})
	if err != nil {
		svc.close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	svc.api, err = api.NewServer(api.Config{
		ListenAddr: cfg.Server.Listen,
		StaticDir:  cfg.Server.StaticDir,
		MCPHandler: mcpServer.Handler(),
	}, svc.engine, logger)
	if err != nil {
		svc.close()
		return nil, err
	}

	logger.Info("gentax configured",
		"retrieval", cfg.Retrieval.Provider,
		"inference", cfg.Inference.Provider,
		"model", cfg.Inference.Model,
		"events", cfg.Events.Provider,
	)

	return svc, nil
}

// close drains pending events, flushes sessions and closes the store.
func (s *services) close() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Error("closing event publisher", "error", err)
		}
	}
	if s.store != nil {
		_ = s.store.Persist(context.Background())
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing session store", "error", err)
		}
	}
}
