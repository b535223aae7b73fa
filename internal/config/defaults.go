package config

import (
	"time"

	"github.com/booksmd/booksmd/internal/analyzer"
)

// Config is the full booksmd configuration tree.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// StorageConfig configures the blob store gateway.
type StorageConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Token may use ${ENV_VAR} syntax; resolved at service construction.
	Token string `mapstructure:"token" yaml:"token"`
}

// AnalyzerConfig selects and configures the analysis backend.
type AnalyzerConfig struct {
	// Backend is one of "gradio", "openai".
	Backend string `mapstructure:"backend" yaml:"backend"`
	Space   string `mapstructure:"space" yaml:"space"`
	Model   string `mapstructure:"model" yaml:"model"`
	// APIKey may use ${ENV_VAR} syntax; resolved at service construction.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// Structured asks the backend for schema-validated JSON output.
	Structured bool `mapstructure:"structured" yaml:"structured"`
}

// PipelineConfig tunes orchestration and the bounded retry read.
type PipelineConfig struct {
	AnalyzeDelay  time.Duration `mapstructure:"analyze_delay" yaml:"analyze_delay"`
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Storage: StorageConfig{
			BaseURL: "http://localhost:9000/blob",
			Token:   "${BLOB_READ_WRITE_TOKEN}",
		},
		Analyzer: AnalyzerConfig{
			Backend: "gradio",
			Space:   analyzer.DefaultGradioSpace,
			Model:   "gpt-4o",
			APIKey:  "${OPENAI_API_KEY}",
		},
		Pipeline: PipelineConfig{
			AnalyzeDelay:  500 * time.Millisecond,
			RetryAttempts: 5,
			RetryDelay:    1 * time.Second,
		},
	}
}
