package knowledge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxContextLength is the character budget for an assembled prompt context.
const DefaultMaxContextLength = 6000

// FormatContext renders search results as prompt context. Results are taken in
// order and whole entries are dropped once the next one would exceed maxChars.
func FormatContext(results []SearchResult, maxChars int) string {
	if len(results) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContextLength
	}

	var (
		b       strings.Builder
		current int
	)
	for _, r := range results {
		header := "Fuente: " + r.Metadata.DocumentName + "\n"
		section := ""
		if r.Metadata.Section != "" {
			section = "[" + r.Metadata.Section + "] "
		}
		body := section + r.Content + "\n\n"

		n := utf8.RuneCountInString(header) + utf8.RuneCountInString(body)
		if current+n > maxChars {
			break
		}
		b.WriteString(header)
		b.WriteString(body)
		current += n
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
