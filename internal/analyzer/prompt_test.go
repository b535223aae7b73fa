package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildPromptTruncatesContent(t *testing.T) {
	req := Request{
		BookTitle:    "Longo",
		ChapterTitle: "Capítulo 1",
		Content:      strings.Repeat("a", maxContentChars+500),
	}
	prompt := BuildPrompt(req)
	if strings.Contains(prompt, strings.Repeat("a", maxContentChars+1)) {
		t.Error("prompt contains untruncated content")
	}
	if !strings.Contains(prompt, strings.Repeat("a", maxContentChars)) {
		t.Error("prompt lost content before the cap")
	}
}

func TestBuildPromptTruncationKeepsRunesIntact(t *testing.T) {
	req := Request{
		ChapterTitle: "Capítulo 1",
		Content:      strings.Repeat("ção", maxContentChars), // 3 runes, 5 bytes each
	}
	prompt := BuildPrompt(req)
	if !utf8.ValidString(prompt) {
		t.Error("truncation split a multi-byte character")
	}
	if got := utf8.RuneCountInString(truncateContent(req.Content, maxContentChars)); got != maxContentChars {
		t.Errorf("truncated content length = %d runes, want %d", got, maxContentChars)
	}
}

func TestBuildPromptUnknownTitle(t *testing.T) {
	prompt := BuildPrompt(Request{ChapterTitle: "Ch 1", Content: "text"})
	if !strings.Contains(prompt, "Desconhecido") {
		t.Errorf("prompt = %q, want unknown-book placeholder", prompt)
	}
}
