package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/pipeline"
	"github.com/booksmd/booksmd/internal/svcctx"
)

// ProcessResponse is returned when pipeline processing is started.
type ProcessResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProcessEndpoint handles POST /api/process/{jobID}.
// It runs the full pipeline for the job in the background.
type ProcessEndpoint struct{}

var _ api.Endpoint = (*ProcessEndpoint)(nil)

func (e *ProcessEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/process/{jobID}", e.handler
}

func (e *ProcessEndpoint) RequiresInit() bool { return true }

func (e *ProcessEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	jobs := svcctx.JobsFrom(r.Context())
	orch := svcctx.OrchestratorFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	job, err := jobs.PeekJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load job: %v", err))
		return
	}
	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is already %s", job.Status))
		return
	}
	if orch.Running(jobID) {
		writeError(w, http.StatusConflict, pipeline.ErrJobAlreadyRunning.Error())
		return
	}

	// Run detached from the request context so the pipeline survives the
	// client disconnecting.
	go func() {
		if err := orch.Run(context.Background(), jobID, nil); err != nil {
			if logger != nil && !errors.Is(err, pipeline.ErrJobAlreadyRunning) {
				logger.Error("pipeline run failed", "job_id", jobID, "error", err)
			}
		}
	}()

	writeJSON(w, http.StatusAccepted, ProcessResponse{
		JobID:   jobID,
		Status:  "processing",
		Message: "Processamento iniciado",
	})
}

func (e *ProcessEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "process <job-id>",
		Short: "Run the analysis pipeline for an uploaded book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProcessResponse
			if err := client.Post(cmd.Context(), "/api/process/"+args[0], nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
