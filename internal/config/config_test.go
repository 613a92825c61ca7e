package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "expands env var",
			input:  "${TEST_VAR}",
			expect: "test-value",
		},
		{
			name:   "keeps unset var",
			input:  "${UNSET_VAR}",
			expect: "${UNSET_VAR}",
		},
		{
			name:   "expands in string",
			input:  "https://${TEST_VAR}.example.com",
			expect: "https://test-value.example.com",
		},
		{
			name:   "no vars",
			input:  "plain string",
			expect: "plain string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expect {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expect)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	content := `
qdrant:
  url: "http://localhost:6334"
  collection: "test_issues"

embedding:
  primary:
    provider: gemini
    api_key: "test-key"

warehouse:
  backend: memory
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Qdrant.Collection != "test_issues" {
		t.Errorf("Collection = %q, want test_issues", cfg.Qdrant.Collection)
	}
	if cfg.Embedding.Primary.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.Embedding.Primary.Provider)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	content := `
qdrant:
  url: "http://localhost:6334"
embedding:
  primary:
    provider: gemini
    api_key: "k"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Embedding.Primary.Dimensions != 3072 {
		t.Errorf("default dimensions = %d, want 3072", cfg.Embedding.Primary.Dimensions)
	}
	if cfg.Embedding.MaxChars != 6000 {
		t.Errorf("default max_chars = %d, want 6000", cfg.Embedding.MaxChars)
	}
	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("default rrf_k = %d, want 60", cfg.Retrieval.RRFK)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("default top_k = %d, want 10", cfg.Retrieval.TopK)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Pipeline.BatchSize != 50 {
		t.Errorf("default batch_size = %d, want 50", cfg.Pipeline.BatchSize)
	}
}

func TestLoad_ExpandsEnvInConfig(t *testing.T) {
	os.Setenv("TEST_QDRANT_KEY", "secret-key")
	defer os.Unsetenv("TEST_QDRANT_KEY")

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	content := `
qdrant:
  url: "http://localhost:6334"
  api_key: "${TEST_QDRANT_KEY}"
embedding:
  primary:
    provider: gemini
    api_key: "k"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Qdrant.APIKey != "secret-key" {
		t.Errorf("APIKey = %q, want secret-key", cfg.Qdrant.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing qdrant url",
			mutate:    func(c *Config) { c.Qdrant.URL = "" },
			wantField: "qdrant.url",
		},
		{
			name:      "unknown embedding provider",
			mutate:    func(c *Config) { c.Embedding.Primary.Provider = "cohere" },
			wantField: "embedding.primary.provider",
		},
		{
			name:      "missing api key",
			mutate:    func(c *Config) { c.Embedding.Primary.APIKey = "" },
			wantField: "embedding.primary.api_key",
		},
		{
			name: "fallback dimension mismatch",
			mutate: func(c *Config) {
				c.Embedding.Fallback.Provider = "openai"
				c.Embedding.Fallback.Dimensions = 768
			},
			wantField: "embedding.fallback.dimensions",
		},
		{
			name:      "bigquery without project",
			mutate:    func(c *Config) { c.Warehouse.Backend = "bigquery"; c.Warehouse.ProjectID = "" },
			wantField: "warehouse.project_id",
		},
		{
			name:      "bad repository format",
			mutate:    func(c *Config) { c.GitHub.Repositories = []string{"no-slash"} },
			wantField: "github.repositories[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := Validate(cfg)
			found := false
			for _, err := range errs {
				if ve, ok := err.(ValidationError); ok && ve.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() missing error for field %q, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidate_OK(t *testing.T) {
	if errs := Validate(validConfig()); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Qdrant.URL = "http://localhost:6334"
	cfg.Embedding.Primary.Provider = "gemini"
	cfg.Embedding.Primary.APIKey = "k"
	cfg.Warehouse.Backend = "memory"
	applyDefaults(cfg)
	return cfg
}
