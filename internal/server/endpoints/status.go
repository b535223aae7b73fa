package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/svcctx"
	"github.com/booksmd/booksmd/internal/types"
)

// StatusEndpoint handles GET /api/status/{jobID}.
type StatusEndpoint struct{}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/status/{jobID}", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	jobs := svcctx.JobsFrom(r.Context())

	job, err := jobs.PeekJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load job: %v", err))
		return
	}

	mdReady := false
	if out, err := jobs.FindOutput(r.Context(), jobID, ".md"); err == nil && out != nil {
		mdReady = true
	}

	writeJSON(w, http.StatusOK, job.Projection(mdReady, false))
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Check job progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			for {
				var resp types.StatusProjection
				if err := client.Get(cmd.Context(), "/api/status/"+args[0], &resp); err != nil {
					return err
				}
				if !watch {
					return api.Output(resp)
				}
				fmt.Printf("%-12s %3d%%  %s\n", resp.Status, resp.Progress, resp.CurrentStep)
				if resp.Status.Terminal() {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(2 * time.Second):
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll until the job reaches a terminal state")
	return cmd
}
