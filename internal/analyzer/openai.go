package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = openai.ChatModelGPT4o

	openAIDefaultTimeout     = 300 * time.Second
	openAIDefaultMaxRetries  = 3
	openAIDefaultTemperature = 0.7
	openAIDefaultMaxTokens   = 4000
)

// openAISystemPrompt frames the model as a book analyst. Responses are
// always requested in Portuguese Markdown.
const openAISystemPrompt = `Você é um Analisador Profissional de Livros.

Receberá um capítulo ou trecho de um livro. Sua função é:

1. Ler e entender profundamente o conteúdo.
2. Explicar cada ideia com clareza e profundidade.
3. Traduzir tudo para português se estiver em inglês ou outro idioma.
4. Explicar termos técnicos de negócios, finanças, marketing, tecnologia, psicologia etc.
5. Dar exemplos práticos quando necessário para facilitar o entendimento.
6. NÃO resuma superficialmente. A explicação deve ser detalhada e didática.
7. Gerar a saída em Markdown formatado e organizado.`

// OpenAIConfig holds configuration for the OpenAI chat backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	BaseURL    string       // Optional (tests)
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIAnalyzer implements Analyzer using the official OpenAI SDK.
type OpenAIAnalyzer struct {
	model  string
	client openai.Client
}

// NewOpenAIAnalyzer creates an OpenAI chat completion client.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = openAIDefaultMaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = openAIDefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIAnalyzer{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the backend identifier.
func (o *OpenAIAnalyzer) Name() string { return OpenAIName }

// Analyze runs one chat completion for the chapter.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISystemPrompt),
			openai.UserMessage(BuildPrompt(req)),
		},
		Temperature:         openai.Float(openAIDefaultTemperature),
		MaxCompletionTokens: openai.Int(openAIDefaultMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai returned an empty analysis")
	}
	return text, nil
}
