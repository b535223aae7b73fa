// Package extract turns uploaded book files into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/booksmd/booksmd/internal/types"
)

// Sentinel errors surfaced to users as job failures.
var (
	// ErrInvalidFormat means the file does not match its declared format
	// (e.g. a PDF upload without the %PDF- magic).
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrInsufficientText means extraction produced too little text to
	// analyze, typically a scanned or image-only PDF.
	ErrInsufficientText = errors.New("insufficient text extracted")
)

// minTextLen is the minimum trimmed text length a book must yield.
const minTextLen = 100

// Result holds the extracted plain text and any metadata recovered from the
// file itself.
type Result struct {
	Text  string
	Title string
}

// Text extracts plain text from data according to fileType. The filename is
// used for the fallback title. Extraction failures wrap ErrInvalidFormat or
// ErrInsufficientText so callers can classify them.
func Text(fileType types.FileType, filename string, data []byte) (*Result, error) {
	var res *Result
	var err error

	switch fileType {
	case types.FileTypePDF:
		res, err = fromPDF(data)
	case types.FileTypeTXT:
		res = &Result{Text: string(data)}
	case types.FileTypeEPUB:
		res, err = fromEPUB(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidFormat, fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(res.Text)) < minTextLen {
		return nil, fmt.Errorf("%w: got %d characters, need at least %d (the file may contain only images or scanned pages)",
			ErrInsufficientText, len(strings.TrimSpace(res.Text)), minTextLen)
	}

	if res.Title == "" {
		res.Title = TitleFromFilename(filename)
	}
	return res, nil
}

// TitleFromFilename derives a book title by stripping the file extension.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
