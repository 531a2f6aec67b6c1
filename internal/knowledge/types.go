package knowledge

// Section is a heading-delimited span of a markdown document.
type Section struct {
	Title   string
	Level   int
	Content string
}

// ChunkMetadata travels with a chunk into the vector index.
type ChunkMetadata struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	Section      string `json:"section"`
	ChunkIndex   int    `json:"chunkIndex"`
	TotalChunks  int    `json:"totalChunks"`
}

// Chunk is the unit of retrieval.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RecordMetadata is the metadata stored next to each vector record.
type RecordMetadata struct {
	ChunkMetadata
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// SearchResult is a ranked match returned by a similarity query.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata RecordMetadata `json:"metadata"`
}

// ConversationTurn is one prior message of a chat.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
