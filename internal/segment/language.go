package segment

import "strings"

// languageSampleWords caps how much of the text the detector inspects.
const languageSampleWords = 1000

var ptStopWords = map[string]struct{}{
	"de": {}, "que": {}, "não": {}, "para": {}, "com": {},
	"uma": {}, "os": {}, "no": {}, "se": {}, "na": {},
}

var enStopWords = map[string]struct{}{
	"the": {}, "of": {}, "and": {}, "to": {}, "in": {},
	"is": {}, "it": {}, "for": {}, "on": {}, "with": {},
}

// DetectLanguage classifies text as Portuguese ("pt") or English ("en") by
// counting stop-word hits in the first thousand words. Ties resolve to
// English.
func DetectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > languageSampleWords {
		words = words[:languageSampleWords]
	}

	var ptCount, enCount int
	for _, w := range words {
		if _, ok := ptStopWords[w]; ok {
			ptCount++
		}
		if _, ok := enStopWords[w]; ok {
			enCount++
		}
	}

	if ptCount > enCount {
		return "pt"
	}
	return "en"
}
