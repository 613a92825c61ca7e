package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devinsight/devinsight/internal/config"
	"github.com/devinsight/devinsight/internal/embedding"
	"github.com/devinsight/devinsight/internal/engine"
	"github.com/devinsight/devinsight/internal/llm"
	"github.com/devinsight/devinsight/internal/logging"
	"github.com/devinsight/devinsight/internal/recordstore"
	"github.com/devinsight/devinsight/internal/retriever"
	"github.com/devinsight/devinsight/internal/retry"
	"github.com/devinsight/devinsight/internal/synthesizer"
	"github.com/devinsight/devinsight/internal/vectordb"
)

// loadConfig resolves, loads, and validates the configuration, and
// builds the logger from it.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfgPath := config.FindConfigPath(cfgFile)
	if cfgPath == "" {
		return nil, nil, fmt.Errorf("config file not found")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("config error: %v\n", e)
		}
		return nil, nil, fmt.Errorf("invalid configuration")
	}

	logger, err := logging.New(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func rpsLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}

func newStore(ctx context.Context, cfg *config.Config) (recordstore.Store, error) {
	switch cfg.Warehouse.Backend {
	case "bigquery":
		return recordstore.NewBigQueryStore(ctx, &cfg.Warehouse)
	case "memory":
		return recordstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown warehouse backend: %s", cfg.Warehouse.Backend)
	}
}

// newEmbedProvider builds the fallback embedding provider, wrapped in
// a persistent cache when one is configured. The returned cleanup
// closes the provider and the cache file.
func newEmbedProvider(cfg *config.Config, logger *zap.Logger) (embedding.Provider, func(), error) {
	provider, err := embedding.NewFallbackProvider(&cfg.Embedding, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	if cfg.Embedding.CachePath == "" {
		return provider, func() { provider.Close() }, nil
	}
	cache, err := embedding.OpenCache(cfg.Embedding.CachePath)
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	cached := embedding.NewCachingProvider(provider, cache, cfg.Embedding.Primary.Model)
	cleanup := func() {
		cached.Close()
		cache.Close()
	}
	return cached, cleanup, nil
}

func newBatcher(cfg *config.Config, provider embedding.Provider, logger *zap.Logger) *embedding.Batcher {
	return embedding.NewBatcher(
		provider,
		cfg.Embedding.BatchSize,
		cfg.Embedding.MaxChars,
		retry.DefaultPolicy(),
		rpsLimiter(cfg.RateLimits.EmbeddingRPS),
		logger,
	)
}

func newIndexClient(cfg *config.Config, logger *zap.Logger) (*vectordb.Client, error) {
	fusion := vectordb.FusionParams{
		RRFK:         cfg.Retrieval.RRFK,
		VectorWeight: cfg.Retrieval.VectorWeight,
	}
	return vectordb.NewClient(&cfg.Qdrant, cfg.Embedding.Primary.Dimensions, fusion, logger)
}

// newEngine wires the full query path. The returned cleanup releases
// every component.
func newEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, func(), error) {
	provider, closeProvider, err := newEmbedProvider(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	index, err := newIndexClient(cfg, logger)
	if err != nil {
		closeProvider()
		return nil, nil, err
	}

	generator, err := llm.NewProvider(&cfg.Generation)
	if err != nil {
		closeProvider()
		index.Close()
		return nil, nil, fmt.Errorf("failed to create generation provider: %w", err)
	}

	batcher := newBatcher(cfg, provider, logger)
	ret := retriever.New(batcher, index, cfg.Retrieval.MinScore, logger)
	syn := synthesizer.New(generator, cfg.Generation.ContextBudget, retry.DefaultPolicy(), logger)
	eng := engine.New(ret, syn, cfg.Retrieval.TopK, logger)

	cleanup := func() {
		closeProvider()
		index.Close()
		generator.Close()
	}
	return eng, cleanup, nil
}
