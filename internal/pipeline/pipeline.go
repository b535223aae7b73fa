// Package pipeline implements the job state machine: extract, per-chapter
// analyze, generate, plus the orchestrator that sequences them and the
// lifecycle cleanup invoked after download.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/booksmd/booksmd/internal/analyzer"
	"github.com/booksmd/booksmd/internal/extract"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/segment"
	"github.com/booksmd/booksmd/internal/types"
)

// ErrTerminalJob is returned when a step is invoked on a completed or failed
// job.
var ErrTerminalJob = errors.New("job is in a terminal state")

// Pipeline holds the step handlers. Each handler performs a single state
// transition and is the sole writer for it.
type Pipeline struct {
	jobs      *jobstore.Store
	analyzer  analyzer.Analyzer
	segmenter segment.Segmenter
	logger    *slog.Logger
}

// Config configures a Pipeline.
type Config struct {
	Jobs      *jobstore.Store
	Analyzer  analyzer.Analyzer
	Segmenter segment.Segmenter
	Logger    *slog.Logger
}

// New creates a pipeline. A nil Segmenter gets the default heading strategy.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seg := cfg.Segmenter
	if seg == nil {
		seg = segment.NewHeadingSegmenter()
	}
	return &Pipeline{
		jobs:      cfg.Jobs,
		analyzer:  cfg.Analyzer,
		segmenter: seg,
		logger:    logger.With("component", "pipeline"),
	}
}

// Jobs exposes the underlying job store.
func (p *Pipeline) Jobs() *jobstore.Store { return p.jobs }

// Extract downloads the source file, extracts its text, splits it into
// chapters and persists them. On success the job lands on analyzing with
// TotalChapters and BookMetadata set. Format and content errors mark the job
// failed with a user-facing message.
func (p *Pipeline) Extract(ctx context.Context, jobID string) (*types.Job, error) {
	job, err := p.jobs.LoadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTerminalJob, jobID, job.Status)
	}
	if job.TotalChapters > 0 {
		// Already extracted; an explicit re-trigger is a no-op.
		return job, nil
	}

	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusExtracting
		j.CurrentStep = "Extraindo texto do arquivo..."
		j.Progress = 10
	}); err != nil {
		return nil, err
	}

	data, err := p.jobs.Blob().Get(ctx, job.SourceURL)
	if err != nil {
		return nil, p.fail(ctx, job, fmt.Errorf("failed to download source file: %w", err))
	}

	res, err := extract.Text(job.FileType, job.Filename, data)
	if err != nil {
		return nil, p.fail(ctx, job, err)
	}

	chapters := p.segmenter.Segment(res.Text)
	if len(chapters) == 0 {
		return nil, p.fail(ctx, job, fmt.Errorf("%w: no chapters produced", extract.ErrInsufficientText))
	}

	for i := range chapters {
		if err := p.jobs.SaveChapter(ctx, jobID, &chapters[i]); err != nil {
			return nil, p.fail(ctx, job, err)
		}
	}

	summaries := make([]types.ChapterSummary, len(chapters))
	for i, ch := range chapters {
		summaries[i] = types.ChapterSummary{
			Index:     ch.Index,
			Title:     ch.Title,
			WordCount: segment.WordCount(ch.Content),
		}
	}
	meta := &types.BookMetadata{
		Title:         res.Title,
		Author:        "Desconhecido",
		Language:      segment.DetectLanguage(res.Text),
		TotalChapters: len(chapters),
		TotalWords:    segment.WordCount(res.Text),
	}

	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusSplitting
		j.CurrentStep = "Dividindo em capítulos..."
		j.Progress = 15
		j.TotalChapters = len(chapters)
		j.Chapters = summaries
		j.BookMetadata = meta
	}); err != nil {
		return nil, err
	}

	// Splitting is instantaneous once chapters are persisted; hand the job
	// straight to the analysis phase.
	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusAnalyzing
	}); err != nil {
		return nil, err
	}

	p.logger.Info("extracted book",
		"job_id", jobID,
		"chapters", len(chapters),
		"words", meta.TotalWords,
		"language", meta.Language)
	return job, nil
}

// Analyze runs the analysis backend for one chapter. Re-invocation on an
// analyzed index is a no-op success. Backend failures are recovered into the
// fallback analysis and never fail the job.
func (p *Pipeline) Analyze(ctx context.Context, jobID string, index int) (*types.Job, error) {
	job, err := p.jobs.LoadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTerminalJob, jobID, job.Status)
	}
	if index < 0 || index >= job.TotalChapters {
		return nil, fmt.Errorf("chapter index %d out of range [0,%d)", index, job.TotalChapters)
	}
	if job.Chapters[index].Analyzed {
		return job, nil
	}

	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusAnalyzing
		j.CurrentStep = fmt.Sprintf("Analisando capítulo %d de %d...", index+1, j.TotalChapters)
		j.Progress = analyzeProgress(index, j.TotalChapters)
	}); err != nil {
		return nil, err
	}

	chapter, err := p.jobs.LoadChapter(ctx, jobID, index)
	if err != nil {
		return nil, err
	}

	req := analyzer.Request{
		ChapterIndex: index,
		ChapterTitle: chapter.Title,
		Content:      chapter.Content,
	}
	if job.BookMetadata != nil {
		req.BookTitle = job.BookMetadata.Title
	}

	text, err := p.analyzer.Analyze(ctx, req)
	fallback := false
	if err != nil {
		p.logger.Warn("analysis backend failed, using fallback",
			"job_id", jobID, "chapter", index, "backend", p.analyzer.Name(), "error", err)
		text = analyzer.FallbackAnalysis
		fallback = true
	}

	if err := p.jobs.SaveAnalysis(ctx, jobID, &types.Analysis{
		ChapterIndex: index,
		Title:        chapter.Title,
		AnalysisText: text,
		Fallback:     fallback,
		AnalyzedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err := p.save(ctx, job, func(j *types.Job) {
		if j.Chapters[index].Analyzed {
			return
		}
		j.Chapters[index].Analyzed = true
		j.AnalyzedChapters++
		if j.AnalyzedChapters >= j.TotalChapters {
			j.Status = types.StatusGenerating
			j.CurrentStep = "Gerando documento final..."
			j.Progress = 85
		}
	}); err != nil {
		return nil, err
	}
	return job, nil
}

// Generate assembles every analysis into the final Markdown report and stores
// it under the job's output namespace. Storage failures here are terminal.
func (p *Pipeline) Generate(ctx context.Context, jobID string) (*types.Job, error) {
	job, err := p.jobs.LoadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTerminalJob, jobID, job.Status)
	}
	if job.Status != types.StatusGenerating && job.AnalyzedChapters < job.TotalChapters {
		return nil, fmt.Errorf("job %s not ready to generate: %d of %d chapters analyzed",
			jobID, job.AnalyzedChapters, job.TotalChapters)
	}

	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusGenerating
		j.CurrentStep = "Gerando documento Markdown..."
		j.Progress = 90
	}); err != nil {
		return nil, err
	}

	analyses, err := p.jobs.ListAnalyses(ctx, jobID)
	if err != nil {
		return nil, p.fail(ctx, job, fmt.Errorf("failed to load analyses: %w", err))
	}
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].ChapterIndex < analyses[j].ChapterIndex
	})

	markdown := renderReport(job, analyses)
	filename := outputFilename(job)

	url, err := p.jobs.Blob().Put(ctx, jobstore.OutputPrefix(jobID)+filename, []byte(markdown), "text/markdown")
	if err != nil {
		return nil, p.fail(ctx, job, fmt.Errorf("failed to store output document: %w", err))
	}

	now := time.Now().UTC()
	if err := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusCompleted
		j.CurrentStep = "Concluído!"
		j.Progress = 100
		j.OutputURL = url
		j.OutputFilename = filename
		j.CompletedAt = &now
	}); err != nil {
		return nil, err
	}

	p.logger.Info("generated report", "job_id", jobID, "filename", filename, "chapters", len(analyses))
	return job, nil
}

// analyzeProgress maps a 0-based chapter index onto the 20-80% band.
func analyzeProgress(index, total int) int {
	if total <= 0 {
		return 20
	}
	return 20 + (60*index)/total
}

// save applies a mutation and persists it, reloading and reapplying once when
// another writer bumped the version underneath us.
func (p *Pipeline) save(ctx context.Context, job *types.Job, apply func(*types.Job)) error {
	apply(job)
	err := p.jobs.SaveJob(ctx, job)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jobstore.ErrVersionConflict) {
		return err
	}

	fresh, loadErr := p.jobs.PeekJob(ctx, job.ID)
	if loadErr != nil {
		return err
	}
	apply(fresh)
	if err := p.jobs.SaveJob(ctx, fresh); err != nil {
		return err
	}
	*job = *fresh
	return nil
}

// FailJob marks a job failed with a user-facing message unless it already
// reached a terminal state. The orchestrator uses it for step errors that did
// not persist their own failure (e.g. a storage fault mid-step), so no job is
// ever stranded in an intermediate status without an error message.
func (p *Pipeline) FailJob(ctx context.Context, jobID string, cause error) {
	job, err := p.jobs.PeekJob(ctx, jobID)
	if err != nil || job.Status.Terminal() {
		return
	}
	_ = p.fail(ctx, job, cause)
}

// fail marks the job failed with a user-facing message and returns the
// original error. Failed jobs are terminal.
func (p *Pipeline) fail(ctx context.Context, job *types.Job, cause error) error {
	p.logger.Error("job failed", "job_id", job.ID, "error", cause)

	if saveErr := p.save(ctx, job, func(j *types.Job) {
		j.Status = types.StatusFailed
		j.CurrentStep = "Erro no processamento"
		j.Progress = 0
		j.ErrorMessage = cause.Error()
	}); saveErr != nil {
		p.logger.Error("failed to persist job failure", "job_id", job.ID, "error", saveErr)
	}
	return cause
}
