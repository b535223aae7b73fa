package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/booksmd/booksmd/internal/types"
)

// renderReport builds the final Markdown document: title page, table of
// contents with per-chapter anchors, one section per chapter in index order,
// fixed footer. Output is always in Portuguese.
func renderReport(job *types.Job, analyses []types.Analysis) string {
	book := job.BookMetadata
	if book == nil {
		book = &types.BookMetadata{}
	}

	title := book.Title
	if title == "" {
		title = "Livro"
	}
	author := book.Author
	if author == "" {
		author = "Desconhecido"
	}
	language := "Inglês"
	if book.Language == "pt" {
		language = "Português"
	}
	totalChapters := book.TotalChapters
	if totalChapters == 0 {
		totalChapters = len(analyses)
	}
	now := time.Now().Format("02/01/2006")

	var b strings.Builder

	fmt.Fprintf(&b, "# 📚 Análise: %s\n\n", title)
	fmt.Fprintf(&b, "> **Autor**: %s  \n", author)
	fmt.Fprintf(&b, "> **Idioma**: %s  \n", language)
	fmt.Fprintf(&b, "> **Total de Capítulos**: %d  \n", totalChapters)
	fmt.Fprintf(&b, "> **Total de Palavras**: %d  \n", book.TotalWords)
	fmt.Fprintf(&b, "> **Gerado em**: %s\n\n", now)
	b.WriteString("---\n\n")

	b.WriteString("## 📋 Índice\n\n")
	for i, a := range analyses {
		fmt.Fprintf(&b, "%d. [%s](#capitulo-%d)\n", i+1, a.Title, i+1)
	}
	b.WriteString("\n---\n\n")

	for i, a := range analyses {
		fmt.Fprintf(&b, "## <a name=\"capitulo-%d\"></a>%d. %s\n\n", i+1, i+1, a.Title)
		text := a.AnalysisText
		if strings.TrimSpace(text) == "" {
			text = "*Análise não disponível*"
		}
		b.WriteString(text)
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString("\n## 📝 Sobre esta Análise\n\n")
	b.WriteString("Este documento foi gerado automaticamente pelo **BooksMD** - Sistema de Análise Inteligente de Livros.\n\n")
	fmt.Fprintf(&b, "- **Processado em**: %s\n", now)
	fmt.Fprintf(&b, "- **Capítulos analisados**: %d\n", len(analyses))
	b.WriteString("- **Powered by**: IA\n\n")
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*BooksMD © %d*\n", time.Now().Year())

	return b.String()
}

// outputFilename derives the report filename from the book title.
func outputFilename(job *types.Job) string {
	title := "analise"
	if job.BookMetadata != nil && strings.TrimSpace(job.BookMetadata.Title) != "" {
		title = sanitizeFilename(job.BookMetadata.Title)
	}
	return title + "_analise.md"
}

// sanitizeFilename keeps the title usable as a storage key and download name.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "analise"
	}
	return b.String()
}
