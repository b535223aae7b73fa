// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/booksmd/booksmd/internal/analyzer"
	"github.com/booksmd/booksmd/internal/blob"
	"github.com/booksmd/booksmd/internal/config"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/pipeline"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Blob         blob.Store
	Jobs         *jobstore.Store
	Analyzer     analyzer.Analyzer
	Pipeline     *pipeline.Pipeline
	Orchestrator *pipeline.Orchestrator
	Config       *config.Manager
	Logger       *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// BlobFrom extracts the blob store from context.
func BlobFrom(ctx context.Context) blob.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Blob
	}
	return nil
}

// JobsFrom extracts the job store from context.
func JobsFrom(ctx context.Context) *jobstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Jobs
	}
	return nil
}

// AnalyzerFrom extracts the analysis backend from context.
func AnalyzerFrom(ctx context.Context) analyzer.Analyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Analyzer
	}
	return nil
}

// PipelineFrom extracts the step handlers from context.
func PipelineFrom(ctx context.Context) *pipeline.Pipeline {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// OrchestratorFrom extracts the orchestrator from context.
func OrchestratorFrom(ctx context.Context) *pipeline.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
