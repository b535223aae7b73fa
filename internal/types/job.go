// Package types defines the records shared across the booksmd pipeline.
package types

import "time"

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusExtracting Status = "extracting"
	StatusSplitting  Status = "splitting"
	StatusAnalyzing  Status = "analyzing"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileType identifies the uploaded book format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeEPUB FileType = "epub"
	FileTypeTXT  FileType = "txt"
)

// Valid reports whether ft is a supported upload format.
func (ft FileType) Valid() bool {
	switch ft {
	case FileTypePDF, FileTypeEPUB, FileTypeTXT:
		return true
	}
	return false
}

// ChapterSummary is the per-chapter entry embedded in the job record.
// Index is unique and equal to the chapter's position.
type ChapterSummary struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	WordCount int    `json:"wordCount"`
	Analyzed  bool   `json:"analyzed"`
}

// BookMetadata is the derived book summary, set once after extraction.
type BookMetadata struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Language      string `json:"language"`
	TotalChapters int    `json:"total_chapters"`
	TotalWords    int    `json:"total_words"`
}

// Job is the root record for one book-analysis request. It is stored as a
// single JSON blob and mutated exclusively by the step handlers, in strictly
// increasing pipeline order.
type Job struct {
	ID        string   `json:"id"`
	Filename  string   `json:"filename"`
	FileType  FileType `json:"fileType"`
	SourceURL string   `json:"fileUrl,omitempty"`

	Status      Status `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep,omitempty"`

	TotalChapters    int              `json:"totalChapters"`
	AnalyzedChapters int              `json:"analyzedChapters"`
	Chapters         []ChapterSummary `json:"chapters"`
	BookMetadata     *BookMetadata    `json:"bookMetadata,omitempty"`

	OutputURL      string `json:"outputUrl,omitempty"`
	OutputFilename string `json:"outputFilename,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Version is an optimistic concurrency counter. SaveJob rejects a write
	// whose observed version is stale, forcing the caller to reload.
	Version int `json:"version"`
}

// NewJob creates a job record in its initial state.
func NewJob(id, filename string, fileType FileType) *Job {
	return &Job{
		ID:        id,
		Filename:  filename,
		FileType:  fileType,
		Status:    StatusPending,
		Chapters:  []ChapterSummary{},
		CreatedAt: time.Now().UTC(),
	}
}

// Chapter is one contiguous segment of the source text. Immutable after
// creation; addressed by (jobID, Index).
type Chapter struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Analysis is the per-chapter result of the analysis backend (or its
// fallback). Created once per chapter, never mutated.
type Analysis struct {
	ChapterIndex int       `json:"chapterIndex"`
	Title        string    `json:"title"`
	AnalysisText string    `json:"analysis"`
	Fallback     bool      `json:"fallback,omitempty"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

// StatusProjection is the read-only view returned by the status surface.
type StatusProjection struct {
	JobID        string        `json:"job_id"`
	Status       Status        `json:"status"`
	Progress     int           `json:"progress"`
	CurrentStep  string        `json:"current_step"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Metadata     *BookMetadata `json:"metadata,omitempty"`
	OutputReady  bool          `json:"output_ready"`
	MdReady      bool          `json:"md_ready"`
	PdfReady     bool          `json:"pdf_ready"`
}

// Projection builds the status view for a job. Output readiness is supplied
// by the caller because it depends on a storage listing.
func (j *Job) Projection(mdReady, pdfReady bool) StatusProjection {
	return StatusProjection{
		JobID:        j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		CurrentStep:  j.CurrentStep,
		ErrorMessage: j.ErrorMessage,
		Metadata:     j.BookMetadata,
		OutputReady:  mdReady || pdfReady,
		MdReady:      mdReady,
		PdfReady:     pdfReady,
	}
}
