package knowledge

import (
	"regexp"
	"strings"
)

const (
	DefaultIntroTitle   = "Introduction"
	DefaultContentTitle = "Content"
)

var headingPattern = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)

// SectionTitles holds the titles used for content that has no heading of its own.
type SectionTitles struct {
	Intro   string
	Content string
}

func (t SectionTitles) withDefaults() SectionTitles {
	if t.Intro == "" {
		t.Intro = DefaultIntroTitle
	}
	if t.Content == "" {
		t.Content = DefaultContentTitle
	}
	return t
}

// matchHeading reports the level and title of a level 1-3 markdown heading line.
func matchHeading(line string) (int, string, bool) {
	m := headingPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// ExtractSections splits markdown into sections at level 1-3 headings.
// Text before the first heading becomes an intro section; a document without
// headings becomes a single content section. Sections with an empty body are dropped.
func ExtractSections(markdown string, titles SectionTitles) []Section {
	titles = titles.withDefaults()
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")

	var (
		sections   []Section
		current    *Section
		body       []string
		preamble   []string
		hasHeading bool
	)

	closeCurrent := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Content != "" {
			sections = append(sections, *current)
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		level, title, ok := matchHeading(line)
		if !ok {
			if current != nil {
				body = append(body, line)
			} else {
				preamble = append(preamble, line)
			}
			continue
		}

		if !hasHeading {
			hasHeading = true
			if intro := strings.TrimSpace(strings.Join(preamble, "\n")); intro != "" {
				sections = append(sections, Section{Title: titles.Intro, Level: 1, Content: intro})
			}
			preamble = nil
		}

		closeCurrent()
		current = &Section{Title: title, Level: level}
		body = body[:0]
	}
	closeCurrent()

	if !hasHeading {
		if all := strings.TrimSpace(markdown); all != "" {
			sections = append(sections, Section{Title: titles.Content, Level: 1, Content: all})
		}
	}
	return sections
}
