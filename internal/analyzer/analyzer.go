// Package analyzer produces literary analyses of book chapters via
// pluggable LLM backends.
package analyzer

import "context"

// Request carries one chapter to analyze plus the book context the prompt
// needs.
type Request struct {
	BookTitle    string
	ChapterIndex int
	ChapterTitle string
	Content      string
}

// Analyzer generates a Markdown analysis for a single chapter. Backends are
// expected to be safe for concurrent use.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Analyzer interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Analyze(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
