package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GradioName         = "gradio"
	DefaultGradioSpace = "burak/Llama-4-Maverick-17B-Websearch"

	gradioDefaultTimeout = 120 * time.Second
)

// GradioConfig holds configuration for the Hugging Face Space backend.
type GradioConfig struct {
	SpaceID    string        // owner/name on huggingface
	BaseURL    string        // Optional override (tests)
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// GradioAnalyzer calls a free-tier Hugging Face Space through the Gradio
// predict API.
type GradioAnalyzer struct {
	url    string
	client *http.Client
}

// NewGradioAnalyzer creates a Gradio Space client.
func NewGradioAnalyzer(cfg GradioConfig) *GradioAnalyzer {
	if cfg.SpaceID == "" {
		cfg.SpaceID = DefaultGradioSpace
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = gradioDefaultTimeout
	}

	url := cfg.BaseURL
	if url == "" {
		// owner/name -> https://owner-name.hf.space
		host := strings.ReplaceAll(cfg.SpaceID, "/", "-")
		url = fmt.Sprintf("https://%s.hf.space", host)
	}
	url = strings.TrimSuffix(url, "/") + "/api/predict"

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &GradioAnalyzer{url: url, client: client}
}

// Name returns the backend identifier.
func (g *GradioAnalyzer) Name() string { return GradioName }

type gradioRequest struct {
	Data    []any `json:"data"`
	FnIndex int   `json:"fn_index"`
}

type gradioResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Analyze sends the chapter prompt to the Space and returns the first data
// element of the response.
func (g *GradioAnalyzer) Analyze(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req)

	body, err := json.Marshal(gradioRequest{
		Data:    []any{prompt, []any{}, ""},
		FnIndex: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gradio request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create gradio request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gradio request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gradio response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio error (status %d): %s", resp.StatusCode, truncateForError(respBody))
	}

	var gr gradioResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("failed to unmarshal gradio response: %w", err)
	}
	if len(gr.Data) == 0 {
		return "", fmt.Errorf("gradio response contains no data")
	}

	var text string
	if err := json.Unmarshal(gr.Data[0], &text); err != nil {
		return "", fmt.Errorf("gradio response data is not text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gradio returned an empty analysis")
	}
	return text, nil
}

func truncateForError(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
