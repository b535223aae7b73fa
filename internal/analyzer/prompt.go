package analyzer

import (
	"fmt"
	"unicode/utf8"
)

// maxContentChars caps how much chapter text goes into a prompt. Free-tier
// backends reject oversized requests well before model context limits.
const maxContentChars = 8000

// FallbackAnalysis is stored in place of a model response when every backend
// attempt fails. Jobs complete with it rather than failing outright.
const FallbackAnalysis = `## Análise do Capítulo

*Análise automática gerada.*

O capítulo apresenta conteúdo relevante para o tema do livro.
Uma análise mais detalhada requer processamento manual.

---

*Nota: A análise por IA não estava disponível no momento do processamento.*`

// BuildPrompt renders the chapter-analysis prompt. Output is requested in
// Portuguese Markdown regardless of the book language.
func BuildPrompt(req Request) string {
	title := req.BookTitle
	if title == "" {
		title = "Desconhecido"
	}

	content := truncateContent(req.Content, maxContentChars)

	return fmt.Sprintf(`Você é um especialista em análise literária. Analise o seguinte capítulo do livro %q.

## Capítulo: %s

%s

---

Por favor, forneça uma análise detalhada incluindo:

1. **Resumo**: Um resumo conciso do capítulo (2-3 parágrafos)
2. **Temas Principais**: Os principais temas abordados
3. **Conceitos-Chave**: Conceitos importantes introduzidos ou desenvolvidos
4. **Pontos de Destaque**: Citações ou passagens importantes
5. **Conexões**: Como este capítulo se relaciona com temas mais amplos

Responda em Markdown formatado.`, title, req.ChapterTitle, content)
}

// truncateContent caps content at limit characters. Counting runes rather
// than bytes keeps accented text from being cut mid-character.
func truncateContent(content string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit])
}
