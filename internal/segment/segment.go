// Package segment splits raw book text into ordered, titled chapters.
package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/booksmd/booksmd/internal/types"
)

// Segmenter turns raw text into an ordered list of chapters. Implementations
// are pluggable so alternative strategies (e.g. EPUB table-of-contents
// driven splitting) can replace the heading heuristic without touching the
// pipeline.
type Segmenter interface {
	Segment(text string) []types.Chapter
}

// maxHeadingLen excludes body-text lines that happen to match a heading
// pattern; real chapter headings are short.
const maxHeadingLen = 100

// chunkWords is the fallback chunk size when no headings are found.
const chunkWords = 3000

var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(chapter|capítulo|cap\.?)\s*(\d+|[ivxlc]+)`),
	regexp.MustCompile(`(?i)^(parte|part)\s*(\d+|[ivxlc]+)`),
	regexp.MustCompile(`^(\d+)\.\s+[A-Z]`),
}

// HeadingSegmenter detects chapter boundaries by scanning for heading lines.
// When the text contains no recognizable headings it falls back to
// fixed-size word chunks.
type HeadingSegmenter struct{}

// NewHeadingSegmenter returns the default segmentation strategy.
func NewHeadingSegmenter() *HeadingSegmenter {
	return &HeadingSegmenter{}
}

// Segment splits text into chapters. Chapters preserve source order; titles
// are taken verbatim from the boundary lines and not normalized.
func (hs *HeadingSegmenter) Segment(text string) []types.Chapter {
	var chapters []types.Chapter
	var title string
	var content []string
	open := false

	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) {
			if open {
				chapters = append(chapters, types.Chapter{
					Index:   len(chapters),
					Title:   title,
					Content: strings.Join(content, "\n"),
				})
			}
			title = strings.TrimSpace(line)
			content = content[:0]
			open = true
			continue
		}
		if open {
			content = append(content, line)
		}
		// Text before the first heading is front matter and is dropped.
	}

	if open {
		chapters = append(chapters, types.Chapter{
			Index:   len(chapters),
			Title:   title,
			Content: strings.Join(content, "\n"),
		})
	}

	if len(chapters) == 0 {
		return chunkByWords(text)
	}
	return chapters
}

// isHeading reports whether line is a chapter boundary.
func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || utf8.RuneCountInString(trimmed) >= maxHeadingLen {
		return false
	}
	for _, p := range headingPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// chunkByWords splits the whitespace-tokenized word stream into fixed-size
// chunks titled "Part k", producing ceil(words/chunkWords) chapters.
func chunkByWords(text string) []types.Chapter {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chapters []types.Chapter
	for start := 0; start < len(words); start += chunkWords {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chapters = append(chapters, types.Chapter{
			Index:   len(chapters),
			Title:   "Part " + strconv.Itoa(len(chapters)+1),
			Content: strings.Join(words[start:end], " "),
		})
	}
	return chapters
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
