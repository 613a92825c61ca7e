package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Qdrant.URL == "" {
		errs = append(errs, ValidationError{"qdrant.url", "required"})
	}

	if cfg.Embedding.Primary.Provider == "" {
		errs = append(errs, ValidationError{"embedding.primary.provider", "required"})
	} else if cfg.Embedding.Primary.Provider != "gemini" && cfg.Embedding.Primary.Provider != "openai" {
		errs = append(errs, ValidationError{"embedding.primary.provider", "must be 'gemini' or 'openai'"})
	}

	if cfg.Embedding.Primary.APIKey == "" {
		errs = append(errs, ValidationError{"embedding.primary.api_key", "required"})
	}

	if cfg.Embedding.Fallback.Provider != "" &&
		cfg.Embedding.Fallback.Dimensions != cfg.Embedding.Primary.Dimensions {
		// The index schema is bound to one dimension; a fallback
		// producing a different width would poison the collection.
		errs = append(errs, ValidationError{"embedding.fallback.dimensions", "must match primary dimensions"})
	}

	if cfg.Embedding.MaxChars < 0 {
		errs = append(errs, ValidationError{"embedding.max_chars", "must be positive"})
	}

	if cfg.Generation.Provider != "" &&
		cfg.Generation.Provider != "gemini" && cfg.Generation.Provider != "openai" {
		errs = append(errs, ValidationError{"generation.provider", "must be 'gemini' or 'openai'"})
	}

	if cfg.Warehouse.Backend != "bigquery" && cfg.Warehouse.Backend != "memory" {
		errs = append(errs, ValidationError{"warehouse.backend", "must be 'bigquery' or 'memory'"})
	}
	if cfg.Warehouse.Backend == "bigquery" && cfg.Warehouse.ProjectID == "" {
		errs = append(errs, ValidationError{"warehouse.project_id", "required for bigquery backend"})
	}

	if cfg.Retrieval.MinScore < 0 || cfg.Retrieval.MinScore > 1 {
		errs = append(errs, ValidationError{"retrieval.min_score", "must be between 0 and 1"})
	}
	if cfg.Retrieval.VectorWeight < 0 || cfg.Retrieval.VectorWeight > 1 {
		errs = append(errs, ValidationError{"retrieval.vector_weight", "must be between 0 and 1"})
	}

	if cfg.Pipeline.Concurrency < 1 {
		errs = append(errs, ValidationError{"pipeline.concurrency", "must be at least 1"})
	}

	for i, repo := range cfg.GitHub.Repositories {
		if !strings.Contains(repo, "/") {
			errs = append(errs, ValidationError{
				fmt.Sprintf("github.repositories[%d]", i),
				"must be in format 'owner/repo'",
			})
		}
	}

	return errs
}
