package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/internal/svcctx"
)

// DownloadEndpoint handles GET /api/download/{jobID}/{type}.
// Streaming the output triggers asynchronous cleanup of the job's files.
type DownloadEndpoint struct{}

var _ api.Endpoint = (*DownloadEndpoint)(nil)

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/download/{jobID}/{type}", e.handler
}

func (e *DownloadEndpoint) RequiresInit() bool { return true }

func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	fileType := r.PathValue("type")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}
	if fileType != "md" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported download type: %s (only md is available)", fileType))
		return
	}

	jobs := svcctx.JobsFrom(r.Context())
	pipe := svcctx.PipelineFrom(r.Context())

	out, err := jobs.FindOutput(r.Context(), jobID, ".md")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to locate output: %v", err))
		return
	}
	if out == nil {
		writeError(w, http.StatusNotFound, "output not found")
		return
	}

	data, err := jobs.Blob().Get(r.Context(), out.URL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read output: %v", err))
		return
	}

	filename := path.Base(out.Key)
	if job, err := jobs.PeekJob(r.Context(), jobID); err == nil && job.OutputFilename != "" {
		filename = job.OutputFilename
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	// The report has been delivered; the job's files are no longer needed.
	go pipe.DeleteJobFiles(context.Background(), jobID)
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the generated Markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, filename, err := client.Download(cmd.Context(), "/api/download/"+args[0]+"/md")
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = filename
			}
			if outPath == "" {
				outPath = args[0] + ".md"
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Printf("Saved %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "destination file (defaults to the server-provided filename)")
	return cmd
}
