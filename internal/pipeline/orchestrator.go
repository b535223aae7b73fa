package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/booksmd/booksmd/internal/types"
)

// DefaultAnalyzeDelay is the courtesy pause between chapter analyses. It
// bounds load on free-tier analysis backends; it is not a rate limit.
const DefaultAnalyzeDelay = 500 * time.Millisecond

// ErrJobAlreadyRunning is returned when a second orchestrator run is started
// for a job that is still being processed.
var ErrJobAlreadyRunning = errors.New("job is already being processed")

// ProgressFunc receives a freshly computed status projection after every
// pipeline step.
type ProgressFunc func(types.StatusProjection)

// Orchestrator drives a job through extract, sequential per-chapter analyze,
// and generate. One run per job at a time; chapter analyses are strictly
// sequential so AnalyzedChapters increments stay race-free.
type Orchestrator struct {
	pipeline *Pipeline
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Pipeline *Pipeline
	Delay    time.Duration // courtesy delay between analyses; zero uses the default
	Logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.Delay
	if delay == 0 {
		delay = DefaultAnalyzeDelay
	}
	return &Orchestrator{
		pipeline: cfg.Pipeline,
		delay:    delay,
		logger:   logger.With("component", "orchestrator"),
		running:  make(map[string]struct{}),
	}
}

// Running reports whether a run is active for the job.
func (o *Orchestrator) Running(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[jobID]
	return ok
}

// Run processes one job end to end. Cancellation is cooperative: the context
// is checked between steps only, so an in-flight step always completes.
// Analyze errors are logged and skipped; Extract and Generate errors stop the
// run with the job marked failed.
func (o *Orchestrator) Run(ctx context.Context, jobID string, progress ProgressFunc) error {
	o.mu.Lock()
	if _, ok := o.running[jobID]; ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobAlreadyRunning, jobID)
	}
	o.running[jobID] = struct{}{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, jobID)
		o.mu.Unlock()
	}()

	emit := func(p types.StatusProjection) {
		if progress != nil {
			progress(p)
		}
	}

	emit(types.StatusProjection{
		JobID:       jobID,
		Status:      types.StatusPending,
		Progress:    5,
		CurrentStep: "Iniciando processamento...",
	})

	job, err := o.pipeline.Extract(ctx, jobID)
	if err != nil {
		o.failRun(ctx, jobID, err, emit)
		return fmt.Errorf("extract failed: %w", err)
	}
	emit(o.project(job))

	for i := 0; i < job.TotalChapters; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		updated, err := o.pipeline.Analyze(ctx, jobID, i)
		if err != nil {
			// One bad chapter never blocks the rest.
			o.logger.Warn("chapter analysis errored, continuing",
				"job_id", jobID, "chapter", i, "error", err)
		} else {
			job = updated
			emit(o.project(job))
		}

		if i < job.TotalChapters-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.delay):
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	job, err = o.pipeline.Generate(ctx, jobID)
	if err != nil {
		o.failRun(ctx, jobID, err, emit)
		return fmt.Errorf("generate failed: %w", err)
	}
	emit(o.project(job))

	return nil
}

// project computes the status view for callbacks. Markdown readiness follows
// the recorded output reference; PDF output is not produced.
func (o *Orchestrator) project(job *types.Job) types.StatusProjection {
	mdReady := job.OutputURL != ""
	return job.Projection(mdReady, false)
}

// failRun persists the failure for a step error that may not have marked the
// job failed itself, then reports the failed state. Cancellation is not a job
// failure; the job stays resumable.
func (o *Orchestrator) failRun(ctx context.Context, jobID string, cause error, emit func(types.StatusProjection)) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return
	}
	o.pipeline.FailJob(ctx, jobID, cause)
	o.emitFailure(ctx, jobID, emit)
}

// emitFailure reports the persisted failed state to the callback.
func (o *Orchestrator) emitFailure(ctx context.Context, jobID string, emit func(types.StatusProjection)) {
	job, err := o.pipeline.Jobs().PeekJob(ctx, jobID)
	if err != nil {
		return
	}
	emit(o.project(job))
}
