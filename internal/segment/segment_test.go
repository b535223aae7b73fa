package segment

import (
	"fmt"
	"strings"
	"testing"
)

func TestSegmentHeadings(t *testing.T) {
	text := strings.Join([]string{
		"Capítulo 1",
		"era uma vez um reino",
		"distante",
		"Capítulo 2",
		"o reino caiu",
	}, "\n")

	chapters := NewHeadingSegmenter().Segment(text)
	if len(chapters) != 2 {
		t.Fatalf("len(chapters) = %d, want 2", len(chapters))
	}
	if chapters[0].Title != "Capítulo 1" || chapters[1].Title != "Capítulo 2" {
		t.Errorf("titles = %q, %q", chapters[0].Title, chapters[1].Title)
	}
	if chapters[0].Index != 0 || chapters[1].Index != 1 {
		t.Errorf("indices = %d, %d", chapters[0].Index, chapters[1].Index)
	}
	if chapters[0].Content != "era uma vez um reino\ndistante" {
		t.Errorf("content[0] = %q", chapters[0].Content)
	}
	if chapters[1].Content != "o reino caiu" {
		t.Errorf("content[1] = %q", chapters[1].Content)
	}
}

func TestSegmentHeadingVariants(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Chapter 1", true},
		{"chapter XII", true},
		{"CAPÍTULO 3", true},
		{"Cap. 4", true},
		{"Part II", true},
		{"Parte 7", true},
		{"3. The Beginning", true},
		{"3. the beginning", false},
		{"An ordinary sentence", false},
		{"", false},
		// Matching pattern but too long to be a heading.
		{"Chapter 1 " + strings.Repeat("x", 100), false},
		// Over 100 bytes but under 100 characters; accents must not
		// push a real heading past the length cut-off.
		{"Capítulo 5 " + strings.Repeat("é", 80), true},
	}

	for _, tt := range tests {
		if got := isHeading(tt.line); got != tt.want {
			t.Errorf("isHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSegmentReconstructsInput(t *testing.T) {
	body1 := "line one\nline two"
	body2 := "line three"
	text := "Chapter 1\n" + body1 + "\nChapter 2\n" + body2

	chapters := NewHeadingSegmenter().Segment(text)
	if len(chapters) != 2 {
		t.Fatalf("len(chapters) = %d, want 2", len(chapters))
	}

	var rebuilt []string
	for _, ch := range chapters {
		rebuilt = append(rebuilt, ch.Title, ch.Content)
	}
	if got := strings.Join(rebuilt, "\n"); got != text {
		t.Errorf("reconstructed = %q, want %q", got, text)
	}
}

func TestSegmentChunkFallback(t *testing.T) {
	// 7000 words, no headings: expect ceil(7000/3000) = 3 chunks.
	words := make([]string, 7000)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	text := strings.Join(words, " ")

	chapters := NewHeadingSegmenter().Segment(text)
	if len(chapters) != 3 {
		t.Fatalf("len(chapters) = %d, want 3", len(chapters))
	}

	total := 0
	for i, ch := range chapters {
		wantTitle := fmt.Sprintf("Part %d", i+1)
		if ch.Title != wantTitle {
			t.Errorf("chapters[%d].Title = %q, want %q", i, ch.Title, wantTitle)
		}
		total += WordCount(ch.Content)
	}
	if total != 7000 {
		t.Errorf("total words across chunks = %d, want 7000", total)
	}
	if got := WordCount(chapters[0].Content); got != 3000 {
		t.Errorf("first chunk words = %d, want 3000", got)
	}
	if got := WordCount(chapters[2].Content); got != 1000 {
		t.Errorf("last chunk words = %d, want 1000", got)
	}

	// Chunks cover the stream in order without overlap.
	if !strings.HasPrefix(chapters[0].Content, "word0 ") {
		t.Errorf("first chunk starts with %q", chapters[0].Content[:20])
	}
	if !strings.HasSuffix(chapters[2].Content, "word6999") {
		t.Errorf("last chunk does not end at word6999")
	}
}

func TestSegmentEmptyText(t *testing.T) {
	if got := NewHeadingSegmenter().Segment(""); len(got) != 0 {
		t.Errorf("Segment(\"\") = %d chapters, want 0", len(got))
	}
}
