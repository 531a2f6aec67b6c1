// Package knowledge turns markdown documents into section-aware chunks and
// retrieved chunks back into a bounded prompt context.
package knowledge

const (
	DefaultMaxChunkSize = 1000
	DefaultOverlap      = 100
)

// ChunkOptions controls how section text is split. A nil Overlap means
// DefaultOverlap; an explicit 0 disables overlap.
type ChunkOptions struct {
	MaxChunkSize int
	Overlap      *int
}

// OverlapOf returns an Overlap value for ChunkOptions.
func OverlapOf(n int) *int {
	return &n
}

// Chunker assembles chunks for whole documents.
type Chunker struct {
	maxSize int
	overlap int
	titles  SectionTitles
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkOptions overrides the split size and overlap. A zero MaxChunkSize
// and a nil or negative Overlap keep the defaults.
func WithChunkOptions(opts ChunkOptions) Option {
	return func(c *Chunker) {
		if opts.MaxChunkSize > 0 {
			c.maxSize = opts.MaxChunkSize
		}
		if opts.Overlap != nil && *opts.Overlap >= 0 {
			c.overlap = *opts.Overlap
		}
	}
}

// WithSectionTitles sets the titles for intro and headingless content.
func WithSectionTitles(titles SectionTitles) Option {
	return func(c *Chunker) {
		c.titles = titles.withDefaults()
	}
}

func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize: DefaultMaxChunkSize,
		overlap: DefaultOverlap,
		titles:  SectionTitles{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Options returns the effective split options.
func (c *Chunker) Options() ChunkOptions {
	return ChunkOptions{MaxChunkSize: c.maxSize, Overlap: OverlapOf(c.overlap)}
}

// Chunk splits a document into chunks. Chunk indices run from 0 across the
// whole document and every chunk carries the final chunk count.
func (c *Chunker) Chunk(markdown, documentID, documentName string) []Chunk {
	var chunks []Chunk
	for _, section := range ExtractSections(markdown, c.titles) {
		for _, span := range SplitText(section.Content, c.maxSize, c.overlap) {
			chunks = append(chunks, Chunk{
				Content: span,
				Metadata: ChunkMetadata{
					DocumentID:   documentID,
					DocumentName: documentName,
					Section:      section.Title,
					ChunkIndex:   len(chunks),
				},
			})
		}
	}
	for i := range chunks {
		chunks[i].Metadata.TotalChunks = len(chunks)
	}
	return chunks
}

// ChunkMarkdown chunks a document with the default chunker settings applied
// on top of opts.
func ChunkMarkdown(markdown, documentID, documentName string, opts ChunkOptions) []Chunk {
	return NewChunker(WithChunkOptions(opts)).Chunk(markdown, documentID, documentName)
}
