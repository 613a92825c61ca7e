package llm

import (
	"context"
	"fmt"

	"github.com/devinsight/devinsight/internal/config"
)

// Provider defines the interface for chat completion
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}

// NewProvider creates a provider based on config
func NewProvider(cfg *config.GenerationConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
