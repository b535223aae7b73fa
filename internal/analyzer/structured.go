package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// analysisSchema constrains the structured analysis document a backend is
// asked to produce.
const analysisSchema = `{
  "type": "object",
  "required": ["summary", "themes"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "themes": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 1
    },
    "key_concepts": {
      "type": "array",
      "items": {"type": "string"}
    },
    "highlights": {
      "type": "array",
      "items": {"type": "string"}
    },
    "connections": {"type": "string"}
  }
}`

type structuredAnalysis struct {
	Summary     string   `json:"summary"`
	Themes      []string `json:"themes"`
	KeyConcepts []string `json:"key_concepts"`
	Highlights  []string `json:"highlights"`
	Connections string   `json:"connections"`
}

// StructuredAnalyzer wraps a backend and asks it for a JSON analysis
// conforming to analysisSchema, then renders it as Markdown. When the backend
// output fails to parse or validate, the raw output is returned unchanged so
// a usable analysis is never discarded.
type StructuredAnalyzer struct {
	inner  Analyzer
	schema *jsonschema.Schema
}

// NewStructuredAnalyzer compiles the analysis schema and wraps inner.
func NewStructuredAnalyzer(inner Analyzer) (*StructuredAnalyzer, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.json", bytes.NewReader([]byte(analysisSchema))); err != nil {
		return nil, fmt.Errorf("failed to load analysis schema: %w", err)
	}
	schema, err := compiler.Compile("analysis.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis schema: %w", err)
	}
	return &StructuredAnalyzer{inner: inner, schema: schema}, nil
}

// Name returns the backend identifier with a structured suffix.
func (s *StructuredAnalyzer) Name() string {
	return s.inner.Name() + "+structured"
}

// Analyze requests JSON output from the inner backend and renders it.
// The chapter is truncated to leave room for the schema instruction inside
// the prompt's content cap, so the instruction is never sliced off for long
// chapters.
func (s *StructuredAnalyzer) Analyze(ctx context.Context, req Request) (string, error) {
	instruction := fmt.Sprintf(`

---

IMPORTANTE: Responda APENAS com JSON válido (sem markdown, sem comentários) conforme este schema:

%s`, analysisSchema)

	jsonReq := req
	jsonReq.Content = truncateContent(req.Content, maxContentChars-utf8.RuneCountInString(instruction)) + instruction

	raw, err := s.inner.Analyze(ctx, jsonReq)
	if err != nil {
		return "", err
	}

	parsed, err := s.parse(raw)
	if err != nil {
		// Backend ignored the JSON instructions; its prose is still an
		// analysis.
		return raw, nil
	}
	return renderStructured(req, parsed), nil
}

// parse extracts and validates the JSON document from model output, tolerating
// markdown code fences.
func (s *StructuredAnalyzer) parse(content string) (*structuredAnalysis, error) {
	candidate := strings.TrimSpace(content)
	if fenced := stripCodeFences(candidate); fenced != "" {
		candidate = fenced
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse structured JSON: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("structured output does not match schema: %w", err)
	}

	var parsed structuredAnalysis
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode structured JSON: %w", err)
	}
	return &parsed, nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// renderStructured formats a validated analysis document as the Markdown
// section layout the report expects.
func renderStructured(req Request, a *structuredAnalysis) string {
	var b strings.Builder

	b.WriteString("### Resumo\n\n")
	b.WriteString(strings.TrimSpace(a.Summary))
	b.WriteString("\n")

	b.WriteString("\n### Temas Principais\n\n")
	for _, theme := range a.Themes {
		fmt.Fprintf(&b, "- %s\n", theme)
	}

	if len(a.KeyConcepts) > 0 {
		b.WriteString("\n### Conceitos-Chave\n\n")
		for _, c := range a.KeyConcepts {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(a.Highlights) > 0 {
		b.WriteString("\n### Pontos de Destaque\n\n")
		for _, h := range a.Highlights {
			fmt.Fprintf(&b, "> %s\n\n", h)
		}
	}

	if strings.TrimSpace(a.Connections) != "" {
		b.WriteString("\n### Conexões\n\n")
		b.WriteString(strings.TrimSpace(a.Connections))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
