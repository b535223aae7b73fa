package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/booksmd/booksmd/internal/api"
	"github.com/booksmd/booksmd/internal/jobstore"
	"github.com/booksmd/booksmd/internal/svcctx"
	"github.com/booksmd/booksmd/internal/types"
)

// UploadResponse is returned after a successful book upload.
type UploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// UploadEndpoint handles POST /api/upload with a multipart book file.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20 // 100MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	fileType, ok := fileTypeFor(header.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s (use PDF, EPUB or TXT)", filepath.Ext(header.Filename)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	jobs := svcctx.JobsFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	jobID := uuid.New().String()
	filename := filepath.Base(header.Filename)

	url, err := jobs.Blob().Put(r.Context(), jobstore.BookPrefix(jobID)+filename, data, contentTypeFor(fileType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store file: %v", err))
		return
	}

	job := types.NewJob(jobID, filename, fileType)
	job.SourceURL = url
	if err := jobs.CreateJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create job: %v", err))
		return
	}

	if logger != nil {
		logger.Info("book uploaded", "job_id", jobID, "filename", filename, "size", len(data))
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		JobID:    jobID,
		Filename: filename,
		Message:  "Arquivo enviado com sucesso",
	})
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a book (PDF, EPUB or TXT) for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.UploadFile(cmd.Context(), "/api/upload", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// fileTypeFor maps a filename extension to a supported file type.
func fileTypeFor(filename string) (types.FileType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return types.FileTypePDF, true
	case ".epub":
		return types.FileTypeEPUB, true
	case ".txt":
		return types.FileTypeTXT, true
	}
	return "", false
}

func contentTypeFor(ft types.FileType) string {
	switch ft {
	case types.FileTypePDF:
		return "application/pdf"
	case types.FileTypeEPUB:
		return "application/epub+zip"
	default:
		return "text/plain"
	}
}
