package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ListenAddr == "" {
		t.Error("default listen addr empty")
	}
	if cfg.Analyzer.Backend != "gradio" {
		t.Errorf("default backend = %q, want gradio", cfg.Analyzer.Backend)
	}
	if cfg.Pipeline.RetryAttempts != 5 {
		t.Errorf("retry attempts = %d, want 5", cfg.Pipeline.RetryAttempts)
	}
	if cfg.Pipeline.RetryDelay != time.Second {
		t.Errorf("retry delay = %v, want 1s", cfg.Pipeline.RetryDelay)
	}
	if cfg.Pipeline.AnalyzeDelay != 500*time.Millisecond {
		t.Errorf("analyze delay = %v, want 500ms", cfg.Pipeline.AnalyzeDelay)
	}
}

func TestResolveEnvVars(t *testing.T) {
	os.Setenv("BOOKSMD_TEST_TOKEN", "secret123")
	defer os.Unsetenv("BOOKSMD_TEST_TOKEN")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain value", "no-vars-here", "no-vars-here"},
		{"single var", "${BOOKSMD_TEST_TOKEN}", "secret123"},
		{"embedded var", "Bearer ${BOOKSMD_TEST_TOKEN}", "Bearer secret123"},
		{"unset var", "${BOOKSMD_TEST_UNSET_VAR}", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.in); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	content := string(data)
	if !strings.HasPrefix(content, "# booksmd configuration") {
		t.Error("missing comment header")
	}
	for _, want := range []string{"server:", "storage:", "analyzer:", "pipeline:", "${BLOB_READ_WRITE_TOKEN}"} {
		if !strings.Contains(content, want) {
			t.Errorf("config file missing %q", want)
		}
	}
}

func TestManagerLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  listen_addr: ":9999"
analyzer:
  backend: openai
  model: gpt-4o-mini
pipeline:
  analyze_delay: 10ms
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cfg := cm.Get()
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("listen addr = %q, want :9999", cfg.Server.ListenAddr)
	}
	if cfg.Analyzer.Backend != "openai" {
		t.Errorf("backend = %q, want openai", cfg.Analyzer.Backend)
	}
	if cfg.Analyzer.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", cfg.Analyzer.Model)
	}
	if cfg.Pipeline.AnalyzeDelay != 10*time.Millisecond {
		t.Errorf("analyze delay = %v, want 10ms", cfg.Pipeline.AnalyzeDelay)
	}
	// Defaults fill in what the file omits.
	if cfg.Storage.BaseURL == "" {
		t.Error("storage defaults not applied")
	}
}
