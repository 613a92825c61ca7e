package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration
type Config struct {
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	GitHub     GitHubConfig     `yaml:"github"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
}

// QdrantConfig contains vector index connection settings
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig contains embedding provider settings
type EmbeddingConfig struct {
	Primary   ProviderConfig `yaml:"primary"`
	Fallback  ProviderConfig `yaml:"fallback"`
	MaxChars  int            `yaml:"max_chars"`  // truncation limit per text
	BatchSize int            `yaml:"batch_size"` // texts per remote call
	CachePath string         `yaml:"cache_path"` // bbolt file, empty disables caching
}

// ProviderConfig contains settings for a remote model provider
type ProviderConfig struct {
	Provider   string `yaml:"provider"` // "gemini" or "openai"
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig contains generative model settings
type GenerationConfig struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	APIKey        string  `yaml:"api_key"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float32 `yaml:"temperature"`
	ContextBudget int     `yaml:"context_budget"` // grounding context chars
}

// WarehouseConfig contains record store settings
type WarehouseConfig struct {
	Backend         string `yaml:"backend"` // "bigquery" or "memory"
	ProjectID       string `yaml:"project_id"`
	Dataset         string `yaml:"dataset"`
	Table           string `yaml:"table"`
	CredentialsFile string `yaml:"credentials_file"`
}

// GitHubConfig contains source-host connector settings
type GitHubConfig struct {
	Repositories []string `yaml:"repositories"` // "owner/repo"
	PageSize     int      `yaml:"page_size"`
}

// RetrievalConfig contains retriever and hybrid search settings
type RetrievalConfig struct {
	TopK         int     `yaml:"top_k"`
	MinScore     float64 `yaml:"min_score"`
	RRFK         int     `yaml:"rrf_k"`
	VectorWeight float64 `yaml:"vector_weight"` // 0..1, remainder goes to keyword leg
}

// PipelineConfig contains indexing pipeline settings
type PipelineConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "console"
	Level  string `yaml:"level"`
}

// RateLimitsConfig contains rate limiting settings
type RateLimitsConfig struct {
	GitHubRPS    int `yaml:"github_requests_per_second"`
	EmbeddingRPS int `yaml:"embedding_requests_per_second"`
	QdrantRPS    int `yaml:"qdrant_requests_per_second"`
}

// Load reads and parses config from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandConfigEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// FindConfigPath looks for config in common locations
func FindConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	paths := []string{
		"devinsight.yaml",
		"devinsight.yml",
		".devinsight.yaml",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, ".config", "devinsight", "config.yaml")
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}

	return ""
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "github_issues"
	}
	if cfg.Embedding.Primary.Model == "" {
		cfg.Embedding.Primary.Model = "gemini-embedding-001"
	}
	if cfg.Embedding.Primary.Dimensions == 0 {
		cfg.Embedding.Primary.Dimensions = 3072
	}
	if cfg.Embedding.Fallback.Dimensions == 0 {
		cfg.Embedding.Fallback.Dimensions = cfg.Embedding.Primary.Dimensions
	}
	if cfg.Embedding.MaxChars == 0 {
		cfg.Embedding.MaxChars = 6000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 25
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "gemini"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gemini-2.5-flash"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.2
	}
	if cfg.Generation.ContextBudget == 0 {
		cfg.Generation.ContextBudget = 12000
	}
	if cfg.Warehouse.Backend == "" {
		cfg.Warehouse.Backend = "bigquery"
	}
	if cfg.Warehouse.Dataset == "" {
		cfg.Warehouse.Dataset = "github_analytics"
	}
	if cfg.Warehouse.Table == "" {
		cfg.Warehouse.Table = "github_issues"
	}
	if cfg.GitHub.PageSize == 0 {
		cfg.GitHub.PageSize = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.01
	}
	if cfg.Retrieval.RRFK == 0 {
		cfg.Retrieval.RRFK = 60
	}
	if cfg.Retrieval.VectorWeight == 0 {
		cfg.Retrieval.VectorWeight = 0.5
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 50
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 1
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.RateLimits.GitHubRPS == 0 {
		cfg.RateLimits.GitHubRPS = 10
	}
	if cfg.RateLimits.EmbeddingRPS == 0 {
		cfg.RateLimits.EmbeddingRPS = 5
	}
	if cfg.RateLimits.QdrantRPS == 0 {
		cfg.RateLimits.QdrantRPS = 50
	}
}
