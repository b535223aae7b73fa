package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/booksmd/booksmd/internal/analyzer"
	"github.com/booksmd/booksmd/internal/blob"
	"github.com/booksmd/booksmd/internal/config"
	"github.com/booksmd/booksmd/internal/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okAnalyzer() analyzer.Analyzer {
	return analyzer.Func(func(ctx context.Context, req analyzer.Request) (string, error) {
		return "Análise do capítulo " + req.ChapterTitle, nil
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *blob.MemoryStore) {
	t.Helper()

	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	store := blob.NewMemoryStore()
	s, err := New(Config{
		ConfigManager: mgr,
		Logger:        quietLogger(),
		Store:         store,
		Analyzer:      okAnalyzer(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func sampleBook() string {
	var b strings.Builder
	b.WriteString("Capítulo 1\n")
	for i := 0; i < 10; i++ {
		b.WriteString("o menino caminhava pela estrada de terra com o seu cachorro e pensava sobre a vida que levava na fazenda\n")
	}
	b.WriteString("Capítulo 2\n")
	for i := 0; i < 10; i++ {
		b.WriteString("a chuva chegou no fim da tarde e trouxe com ela o cheiro da terra molhada que ele tanto gostava\n")
	}
	return b.String()
}

func uploadBook(t *testing.T, ts *httptest.Server, filename, content string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d, body: %s", resp.StatusCode, body)
	}

	var out struct {
		JobID    string `json:"job_id"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if out.JobID == "" {
		t.Fatal("upload returned empty job_id")
	}
	return out.JobID
}

func getStatus(t *testing.T, ts *httptest.Server, jobID string) types.StatusProjection {
	t.Helper()

	resp, err := http.Get(ts.URL + "/api/status/" + jobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var proj types.StatusProjection
	if err := json.NewDecoder(resp.Body).Decode(&proj); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return proj
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("status = %q, want ok", out.Status)
	}
}

func TestReady(t *testing.T) {
	ts, store := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	store.SetUnavailable(true)
	resp, err = http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status with storage down = %d, want 503", resp.StatusCode)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "livro.docx")
	io.WriteString(part, "conteudo")
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadCreatesJob(t *testing.T) {
	ts, _ := newTestServer(t)

	jobID := uploadBook(t, ts, "livro.txt", sampleBook())

	proj := getStatus(t, ts, jobID)
	if proj.Status != types.StatusPending {
		t.Errorf("status = %s, want pending", proj.Status)
	}
	if proj.MdReady {
		t.Error("md_ready = true before processing")
	}
}

func TestStatusUnknownJob(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status/no-such-job")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProcessUnknownJob(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/process/no-such-job", "application/json", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadMissingOutput(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/download/no-such-job/md")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadRejectsUnsupportedType(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/download/some-job/pdf")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEndToEnd(t *testing.T) {
	ts, store := newTestServer(t)

	jobID := uploadBook(t, ts, "meu_livro.txt", sampleBook())

	resp, err := http.Post(ts.URL+"/api/process/"+jobID, "application/json", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("process status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(15 * time.Second)
	var proj types.StatusProjection
	for {
		proj = getStatus(t, ts, jobID)
		if proj.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, stuck at %s (%d%%)", proj.Status, proj.Progress)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if proj.Status != types.StatusCompleted {
		t.Fatalf("final status = %s (%s), want completed", proj.Status, proj.ErrorMessage)
	}
	if proj.Progress != 100 {
		t.Errorf("progress = %d, want 100", proj.Progress)
	}
	if !proj.MdReady || !proj.OutputReady {
		t.Error("output not reported ready")
	}
	if proj.Metadata == nil || proj.Metadata.TotalChapters != 2 {
		t.Errorf("metadata = %+v, want 2 chapters", proj.Metadata)
	}

	dl, err := http.Get(ts.URL + "/api/download/" + jobID + "/md")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	body, _ := io.ReadAll(dl.Body)
	dl.Body.Close()

	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, body: %s", dl.StatusCode, body)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "_analise.md") {
		t.Errorf("Content-Disposition = %q, want *_analise.md", cd)
	}
	report := string(body)
	if !strings.Contains(report, "Índice") {
		t.Error("report missing index section")
	}
	if !strings.Contains(report, "Capítulo 1") || !strings.Contains(report, "Capítulo 2") {
		t.Error("report missing chapter titles")
	}

	// Download triggers async cleanup of the job's files.
	cleanupDeadline := time.Now().Add(5 * time.Second)
	for store.Len() > 0 {
		if time.Now().After(cleanupDeadline) {
			t.Fatalf("cleanup did not run, %d objects left", store.Len())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestRequireInitBlocksWithoutServices(t *testing.T) {
	s := &Server{logger: quietLogger()}

	handler := s.requireInit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/status/x", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
