package pipeline

import (
	"context"

	"github.com/booksmd/booksmd/internal/jobstore"
)

// DeleteJobFiles removes every stored object for a job across its three
// namespaces: metadata/chapters/analyses, the uploaded source file, and the
// generated outputs. Best effort: individual failures are logged, not
// retried, and never returned to the caller.
func (p *Pipeline) DeleteJobFiles(ctx context.Context, jobID string) {
	prefixes := []string{
		jobstore.JobPrefix(jobID),
		jobstore.BookPrefix(jobID),
		jobstore.OutputPrefix(jobID),
	}

	store := p.jobs.Blob()
	deleted := 0
	for _, prefix := range prefixes {
		objs, err := store.List(ctx, prefix)
		if err != nil {
			p.logger.Warn("cleanup list failed", "job_id", jobID, "prefix", prefix, "error", err)
			continue
		}
		for _, obj := range objs {
			if err := store.Delete(ctx, obj.URL); err != nil {
				p.logger.Warn("cleanup delete failed", "job_id", jobID, "key", obj.Key, "error", err)
				continue
			}
			deleted++
		}
	}

	p.logger.Info("cleaned up job files", "job_id", jobID, "deleted", deleted)
}
