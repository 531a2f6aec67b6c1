package knowledge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTags caps the number of tags attached to a document.
const MaxTags = 10

// DefaultTagVocabulary is matched against the document text when no heading yields a tag.
var DefaultTagVocabulary = []string{
	"operación",
	"operacion",
	"venta",
	"compra",
	"alquiler",
	"propiedad",
	"inmueble",
	"departamento",
	"casa",
	"honorarios",
	"comisión",
	"comision",
	"reserva",
	"cierre",
	"dashboard",
	"formulario",
	"cliente",
	"asesor",
	"agente",
	"franquicia",
	"tutorial",
	"guía",
	"guia",
}

// TagExtractor derives topical tags for a document.
type TagExtractor struct {
	Vocabulary []string
}

func NewTagExtractor(vocabulary []string) *TagExtractor {
	if len(vocabulary) == 0 {
		vocabulary = DefaultTagVocabulary
	}
	return &TagExtractor{Vocabulary: vocabulary}
}

// Extract returns up to MaxTags lowercase tags in discovery order. Heading
// words longer than three characters win; the vocabulary is only consulted
// when headings produce nothing.
func (e *TagExtractor) Extract(markdown string) []string {
	tags := newTagSet()

	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		_, title, ok := matchHeading(line)
		if !ok {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(title)) {
			word = strings.TrimFunc(word, notWordRune)
			if utf8.RuneCountInString(word) > 3 {
				tags.add(word)
			}
		}
	}

	if tags.len() == 0 {
		lower := strings.ToLower(markdown)
		for _, kw := range e.Vocabulary {
			if strings.Contains(lower, kw) {
				tags.add(kw)
			}
		}
	}

	out := tags.list()
	if len(out) > MaxTags {
		out = out[:MaxTags]
	}
	return out
}

// ExtractTags runs the default extractor.
func ExtractTags(markdown string) []string {
	return NewTagExtractor(nil).Extract(markdown)
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

type tagSet struct {
	seen  map[string]struct{}
	order []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]struct{})}
}

func (s *tagSet) add(tag string) {
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.order = append(s.order, tag)
}

func (s *tagSet) len() int { return len(s.order) }

func (s *tagSet) list() []string { return s.order }
