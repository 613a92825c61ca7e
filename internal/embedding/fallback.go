package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/config"
)

// FallbackProvider wraps primary and fallback providers
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger
}

// NewFallbackProvider creates a provider with primary and optional fallback
func NewFallbackProvider(cfg *config.EmbeddingConfig, logger *zap.Logger) (*FallbackProvider, error) {
	primary, err := createProvider(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider: %w", err)
	}

	var fallback Provider
	if cfg.Fallback.Provider != "" && cfg.Fallback.APIKey != "" {
		fallback, err = createProvider(&cfg.Fallback)
		if err != nil {
			logger.Warn("failed to create fallback provider", zap.Error(err))
		}
	}

	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// createProvider creates a provider based on config
func createProvider(cfg *config.ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.Dimensions)
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// Embed generates an embedding with fallback on failure
func (p *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := p.primary.Embed(ctx, text)
	if err == nil {
		return embedding, nil
	}

	if p.fallback == nil {
		return nil, fmt.Errorf("primary embedding failed (no fallback): %w", err)
	}

	p.logger.Warn("primary embedding failed, trying fallback", zap.Error(err))
	return p.fallback.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts with fallback
func (p *FallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := p.primary.EmbedBatch(ctx, texts)
	if err == nil {
		return embeddings, nil
	}

	if p.fallback == nil {
		return nil, fmt.Errorf("primary embedding failed (no fallback): %w", err)
	}

	p.logger.Warn("primary batch embedding failed, trying fallback", zap.Error(err))
	return p.fallback.EmbedBatch(ctx, texts)
}

// Dimensions returns the primary provider's vector width
func (p *FallbackProvider) Dimensions() int {
	return p.primary.Dimensions()
}

// Close releases resources
func (p *FallbackProvider) Close() error {
	var errs []error
	if err := p.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.fallback != nil {
		if err := p.fallback.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
