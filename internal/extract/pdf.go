package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var pdfMagic = []byte("%PDF-")

// fromPDF validates the file structure with pdfcpu, then extracts the text
// layer page by page. The Info dictionary title is used when present.
func fromPDF(data []byte) (res *Result, err error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrInvalidFormat)
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrInvalidFormat)
	}

	// The pdf reader panics on some malformed files that survive
	// structural validation.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: PDF text layer unreadable: %v", ErrInvalidFormat, r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract text: %v", ErrInvalidFormat, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("%w: failed to extract text: %v", ErrInvalidFormat, err)
	}

	return &Result{
		Text:  buf.String(),
		Title: pdfTitle(reader),
	}, nil
}

// pdfTitle reads /Info /Title from the document trailer.
func pdfTitle(reader *lpdf.Reader) (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	v := reader.Trailer().Key("Info").Key("Title")
	return strings.TrimSpace(v.Text())
}
