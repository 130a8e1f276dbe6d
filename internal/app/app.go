package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dompeassist/internal/api"
	"dompeassist/internal/config"
	"dompeassist/internal/knowledge"
	"dompeassist/internal/logger"
	"dompeassist/internal/redis"
	"dompeassist/internal/search"
	"dompeassist/internal/service/ai"
	"dompeassist/internal/service/assistant"
)

// App holds the long-lived components shared by every request.
type App struct {
	Config    *config.Config
	AI        *ai.Service
	Search    *search.Provider
	Knowledge *knowledge.Base
	Prompt    *knowledge.Builder
	Pipeline  *assistant.Pipeline
	Limiter   api.Limiter

	redis *redis.Client
}

// New loads the knowledge base and builds the completion client, the search
// provider and the answer pipeline from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	base, err := knowledge.Load(ctx, cfg.Assistant.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	prompt := knowledge.NewBuilder(base, cfg.Assistant.ClarificationEnabled)

	aiService, err := ai.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init completion client: %w", err)
	}

	provider := search.NewProvider(search.Options{
		Endpoint:        cfg.Search.Endpoint,
		CompanyName:     cfg.Search.CompanyName,
		OfficialSiteURL: cfg.Search.OfficialSiteURL,
		ResultLimit:     cfg.Search.ResultLimit,
		Timeout:         cfg.Search.Timeout(),
	})

	pipeline := assistant.NewPipeline(aiService, provider, prompt, assistant.Options{
		ClarificationEnabled: cfg.Assistant.ClarificationEnabled,
		FinalMaxTokens:       cfg.Assistant.FinalMaxTokens,
	})

	a := &App{
		Config:    cfg,
		AI:        aiService,
		Search:    provider,
		Knowledge: base,
		Prompt:    prompt,
		Pipeline:  pipeline,
	}
	if err := a.initLimiter(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initLimiter() error {
	limit := a.Config.BasicConfig.RateLimitPerMinute
	if limit <= 0 {
		return nil
	}
	if a.Config.Redis.Enabled {
		client, err := redis.NewRedisClient(a.Config)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		a.redis = client
		a.Limiter = api.NewRedisLimiter(client, limit, time.Minute)
		logger.L().Info("rate limit enabled", zap.Int("per_minute", limit), zap.String("backend", "redis"))
		return nil
	}
	a.Limiter = api.NewMemoryLimiter(limit, time.Minute)
	logger.L().Info("rate limit enabled", zap.Int("per_minute", limit), zap.String("backend", "memory"))
	return nil
}

func (a *App) Close() error {
	return a.redis.Close()
}
