package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const containerPath = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		Title string `xml:"title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// fromEPUB walks the OPF spine in reading order and extracts the text of each
// XHTML document. Files that fail structured parsing fall back to stripping
// markup with a regex so a slightly malformed EPUB still yields its text.
func fromEPUB(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", ErrInvalidFormat, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := rootfilePath(files)
	if err != nil {
		return nil, err
	}

	opfData, err := readZipFile(files, opfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: missing package document %s: %v", ErrInvalidFormat, opfPath, err)
	}

	var pkg epubPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("%w: invalid package document: %v", ErrInvalidFormat, err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
	}

	opfDir := path.Dir(opfPath)
	var parts []string
	for _, ref := range pkg.Spine.Itemrefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		docPath := href
		if opfDir != "." {
			docPath = path.Join(opfDir, href)
		}
		docData, err := readZipFile(files, docPath)
		if err != nil {
			continue
		}
		if text := documentText(docData); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: EPUB spine yielded no text", ErrInsufficientText)
	}

	return &Result{
		Text:  strings.Join(parts, "\n\n"),
		Title: strings.TrimSpace(pkg.Metadata.Title),
	}, nil
}

// rootfilePath locates the OPF package document via META-INF/container.xml.
func rootfilePath(files map[string]*zip.File) (string, error) {
	data, err := readZipFile(files, containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: missing %s: %v", ErrInvalidFormat, containerPath, err)
	}
	var c epubContainer
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("%w: invalid container.xml: %v", ErrInvalidFormat, err)
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("%w: container.xml names no rootfile", ErrInvalidFormat)
	}
	return c.Rootfiles[0].FullPath, nil
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("no such entry %q", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// documentText extracts readable text from an XHTML chapter document.
func documentText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err == nil {
		doc.Find("script, style").Remove()
		if body := doc.Find("body"); body.Length() > 0 {
			return strings.TrimSpace(body.Text())
		}
		return strings.TrimSpace(doc.Text())
	}
	// Markup too broken for the parser: strip tags instead.
	return strings.TrimSpace(tagPattern.ReplaceAllString(string(data), " "))
}
