// Package jobstore provides typed access to job state on top of the blob
// store. It owns the key layout and the bounded retry read that masks the
// upload-webhook race against the eventually consistent backend.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/booksmd/booksmd/internal/blob"
	"github.com/booksmd/booksmd/internal/types"
)

// Sentinel errors for the jobstore package.
var (
	// ErrJobNotFound is returned when a job cannot be resolved within the
	// bounded retry budget. Terminal for the calling request, not the job.
	ErrJobNotFound = errors.New("job not found")

	// ErrChapterNotFound is returned for a missing chapter index. Chapter
	// lookups fail fast: a known index that is absent is a caller bug, not
	// a consistency race.
	ErrChapterNotFound = errors.New("chapter not found")

	// ErrAnalysisNotFound is returned for a missing analysis object.
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrVersionConflict is returned by SaveJob when the observed job
	// version is stale. Callers must reload and reapply their change.
	ErrVersionConflict = errors.New("job version conflict")
)

const (
	// DefaultRetryAttempts bounds the LoadJob retry loop.
	DefaultRetryAttempts = 5

	// DefaultRetryDelay is the fixed backoff between LoadJob attempts.
	DefaultRetryDelay = 1 * time.Second
)

// SourceFile is a resolved reference to the uploaded book blob.
type SourceFile struct {
	Filename string
	URL      string
}

// Store reads and writes job state through a blob.Store.
type Store struct {
	store  blob.Store
	logger *slog.Logger

	retryAttempts uint
	retryDelay    time.Duration
}

// Config configures a Store.
type Config struct {
	Store  blob.Store
	Logger *slog.Logger

	// RetryAttempts and RetryDelay tune the bounded retry read.
	// Zero values use the package defaults.
	RetryAttempts uint
	RetryDelay    time.Duration
}

// New creates a job store.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = DefaultRetryAttempts
	}
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}
	return &Store{
		store:         cfg.Store,
		logger:        logger.With("component", "jobstore"),
		retryAttempts: attempts,
		retryDelay:    delay,
	}
}

// Key layout under the blob store.
func jobKey(jobID string) string { return "jobs/" + jobID + "/metadata.json" }

// JobPrefix is the namespace holding job metadata, chapters and analyses.
func JobPrefix(jobID string) string { return "jobs/" + jobID + "/" }

func chapterKey(jobID string, index int) string {
	return fmt.Sprintf("jobs/%s/chapters/%d.json", jobID, index)
}

func analysisKey(jobID string, index int) string {
	return fmt.Sprintf("jobs/%s/analysis/%d.json", jobID, index)
}

func analysisPrefix(jobID string) string { return "jobs/" + jobID + "/analysis/" }

// BookPrefix is the namespace holding the original uploaded file.
func BookPrefix(jobID string) string { return "books/" + jobID + "/" }

// OutputPrefix is the namespace holding generated documents.
func OutputPrefix(jobID string) string { return "outputs/" + jobID + "/" }

// LoadJob reads the job record, retrying with fixed backoff until the record
// exists with a resolvable source file reference, or the retry budget is
// exhausted. The retry exists solely to mask the upload webhook racing the
// first read; all other lookups in this package fail fast.
func (s *Store) LoadJob(ctx context.Context, jobID string) (*types.Job, error) {
	var job *types.Job

	err := retry.Do(
		func() error {
			j, err := s.loadJobOnce(ctx, jobID)
			if err != nil {
				return err
			}
			if j.SourceURL == "" {
				// Metadata may land before the upload webhook fills in the
				// file reference; look for the book blob directly.
				src, srcErr := s.ResolveSource(ctx, jobID)
				if srcErr != nil {
					return fmt.Errorf("job %s has no source file yet", jobID)
				}
				j.SourceURL = src.URL
				if j.Filename == "" {
					j.Filename = src.Filename
				}
			}
			job = j
			return nil
		},
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("job not visible yet, retrying",
				"job_id", jobID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// PeekJob reads the job record with a single attempt and no source
// resolution. Used by read-only surfaces that must not block.
func (s *Store) PeekJob(ctx context.Context, jobID string) (*types.Job, error) {
	job, err := s.loadJobOnce(ctx, jobID)
	if err != nil {
		if errors.Is(err, blob.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// loadJobOnce performs one list+get round trip for the job record.
func (s *Store) loadJobOnce(ctx context.Context, jobID string) (*types.Job, error) {
	obj, err := s.findObject(ctx, JobPrefix(jobID), "metadata.json")
	if err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, obj.URL)
	if err != nil {
		return nil, err
	}

	var job types.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// SaveJob writes the whole job record, enforcing the optimistic version
// check. On success the stored version is job.Version+1 and the passed
// record is updated to match.
func (s *Store) SaveJob(ctx context.Context, job *types.Job) error {
	current, err := s.loadJobOnce(ctx, job.ID)
	if err == nil && current.Version != job.Version {
		return fmt.Errorf("%w: observed %d, stored %d", ErrVersionConflict, job.Version, current.Version)
	}

	job.Version++
	data, err := json.Marshal(job)
	if err != nil {
		job.Version--
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	if _, err := s.store.Put(ctx, jobKey(job.ID), data, "application/json"); err != nil {
		job.Version--
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// CreateJob writes an initial job record without the version check.
func (s *Store) CreateJob(ctx context.Context, job *types.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	if _, err := s.store.Put(ctx, jobKey(job.ID), data, "application/json"); err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

// LoadChapter reads one chapter. Misses fail fast with ErrChapterNotFound.
func (s *Store) LoadChapter(ctx context.Context, jobID string, index int) (*types.Chapter, error) {
	obj, err := s.findObject(ctx, chapterKey(jobID, index), "")
	if err != nil {
		if errors.Is(err, blob.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: job %s index %d", ErrChapterNotFound, jobID, index)
	}

	data, err := s.store.Get(ctx, obj.URL)
	if err != nil {
		return nil, err
	}

	var ch types.Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to decode chapter %d: %w", index, err)
	}
	return &ch, nil
}

// SaveChapter persists one chapter object.
func (s *Store) SaveChapter(ctx context.Context, jobID string, ch *types.Chapter) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to encode chapter %d: %w", ch.Index, err)
	}
	if _, err := s.store.Put(ctx, chapterKey(jobID, ch.Index), data, "application/json"); err != nil {
		return fmt.Errorf("failed to save chapter %d: %w", ch.Index, err)
	}
	return nil
}

// LoadAnalysis reads one analysis object, failing fast on a miss.
func (s *Store) LoadAnalysis(ctx context.Context, jobID string, index int) (*types.Analysis, error) {
	obj, err := s.findObject(ctx, analysisKey(jobID, index), "")
	if err != nil {
		if errors.Is(err, blob.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: job %s index %d", ErrAnalysisNotFound, jobID, index)
	}

	data, err := s.store.Get(ctx, obj.URL)
	if err != nil {
		return nil, err
	}

	var a types.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %d: %w", index, err)
	}
	return &a, nil
}

// SaveAnalysis persists one analysis object.
func (s *Store) SaveAnalysis(ctx context.Context, jobID string, a *types.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis %d: %w", a.ChapterIndex, err)
	}
	if _, err := s.store.Put(ctx, analysisKey(jobID, a.ChapterIndex), data, "application/json"); err != nil {
		return fmt.Errorf("failed to save analysis %d: %w", a.ChapterIndex, err)
	}
	return nil
}

// ListAnalyses reads every analysis object for the job. Order is whatever the
// store returns; callers sort by chapter index.
func (s *Store) ListAnalyses(ctx context.Context, jobID string) ([]types.Analysis, error) {
	objs, err := s.store.List(ctx, analysisPrefix(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for %s: %w", jobID, err)
	}

	analyses := make([]types.Analysis, 0, len(objs))
	for _, obj := range objs {
		data, err := s.store.Get(ctx, obj.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read analysis %s: %w", obj.Key, err)
		}
		var a types.Analysis
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("failed to decode analysis %s: %w", obj.Key, err)
		}
		analyses = append(analyses, a)
	}
	return analyses, nil
}

// ResolveSource finds the uploaded book file for the job.
func (s *Store) ResolveSource(ctx context.Context, jobID string) (*SourceFile, error) {
	objs, err := s.store.List(ctx, BookPrefix(jobID))
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("no source file for job %s", jobID)
	}
	return &SourceFile{
		Filename: path.Base(objs[0].Key),
		URL:      objs[0].URL,
	}, nil
}

// FindOutput looks for a generated output with the given extension
// (e.g. ".md"). Returns nil without error when none exists.
func (s *Store) FindOutput(ctx context.Context, jobID, ext string) (*blob.Object, error) {
	objs, err := s.store.List(ctx, OutputPrefix(jobID))
	if err != nil {
		return nil, err
	}
	for i := range objs {
		if strings.HasSuffix(objs[i].Key, ext) {
			return &objs[i], nil
		}
	}
	return nil, nil
}

// Blob exposes the underlying store for components that need raw access
// (source download, output write, lifecycle cleanup).
func (s *Store) Blob() blob.Store { return s.store }

// findObject lists prefix and returns the first object whose key contains
// the needle (or the first object when needle is empty).
func (s *Store) findObject(ctx context.Context, prefix, needle string) (*blob.Object, error) {
	objs, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for i := range objs {
		if needle == "" || strings.Contains(objs[i].Key, needle) {
			return &objs[i], nil
		}
	}
	return nil, fmt.Errorf("no object under %s", prefix)
}
