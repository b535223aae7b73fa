package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/booksmd/booksmd/internal/types"
)

func TestTextPlain(t *testing.T) {
	body := strings.Repeat("a plain sentence about nothing in particular. ", 10)
	res, err := Text(types.FileTypeTXT, "notes.txt", []byte(body))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if res.Text != body {
		t.Errorf("text altered during extraction")
	}
	if res.Title != "notes" {
		t.Errorf("Title = %q, want %q", res.Title, "notes")
	}
}

func TestTextInsufficient(t *testing.T) {
	_, err := Text(types.FileTypeTXT, "short.txt", []byte("too short"))
	if !errors.Is(err, ErrInsufficientText) {
		t.Errorf("error = %v, want ErrInsufficientText", err)
	}
}

func TestTextUnsupportedType(t *testing.T) {
	_, err := Text(types.FileType("docx"), "a.docx", []byte("data"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestTextPDFRejectsMissingMagic(t *testing.T) {
	_, err := Text(types.FileTypePDF, "fake.pdf", []byte("this is not a pdf at all"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestTextPDFRejectsTruncated(t *testing.T) {
	_, err := Text(types.FileTypePDF, "broken.pdf", []byte("%PDF-1.7\ngarbage"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dom-casmurro.pdf", "dom-casmurro"},
		{"/uploads/war and peace.epub", "war and peace"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := TitleFromFilename(tt.in); got != tt.want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// buildEPUB assembles a minimal two-chapter EPUB in memory.
func buildEPUB(t *testing.T, title string, chapters map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}

	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for name := range chapters {
		manifest.WriteString(`<item id="ch` + name + `" href="` + name + `" media-type="application/xhtml+xml"/>`)
		spine.WriteString(`<itemref idref="ch` + name + `"/>`)
	}
	write("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>`+title+`</dc:title>
  </metadata>
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spine.String()+`</spine>
</package>`)

	for name, text := range chapters {
		write("OEBPS/"+name, `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>x</title></head><body><p>`+text+`</p></body></html>`)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestTextEPUB(t *testing.T) {
	filler := strings.Repeat("some readable chapter prose repeated for length. ", 5)
	data := buildEPUB(t, "A Test Novel", map[string]string{
		"ch1.xhtml": "Chapter 1 " + filler,
	})

	res, err := Text(types.FileTypeEPUB, "book.epub", data)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if res.Title != "A Test Novel" {
		t.Errorf("Title = %q, want %q", res.Title, "A Test Novel")
	}
	if !strings.Contains(res.Text, "readable chapter prose") {
		t.Errorf("extracted text missing chapter body: %q", res.Text)
	}
	if strings.Contains(res.Text, "<p>") {
		t.Errorf("extracted text still contains markup")
	}
}

func TestTextEPUBNotZip(t *testing.T) {
	_, err := Text(types.FileTypeEPUB, "bad.epub", []byte("definitely not a zip"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("error = %v, want ErrInvalidFormat", err)
	}
}

func TestDocumentTextFallback(t *testing.T) {
	// Unclosed tags still yield the inner text via the strip fallback.
	got := documentText([]byte("<body><p>hello <b>world"))
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("documentText fallback = %q", got)
	}
}
