package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/devinsight/devinsight/internal/config"
)

// GeminiProvider implements Provider using Google's Gemini API
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiProvider creates a new Gemini chat provider
func NewGeminiProvider(cfg *config.GenerationConfig) (*GeminiProvider, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Complete generates a completion with an optional system prompt
func (p *GeminiProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: genai.Ptr(p.maxTokens),
		Temperature:     genai.Ptr(p.temperature),
	}

	if system != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Close releases resources
func (p *GeminiProvider) Close() error {
	return nil
}
