package knowledge

import (
	"encoding/json"
	"strconv"
)

// Metadata keys used on vector records.
const (
	KeyDocumentID   = "documentId"
	KeyDocumentName = "documentName"
	KeySection      = "section"
	KeyChunkIndex   = "chunkIndex"
	KeyTotalChunks  = "totalChunks"
	KeyContent      = "content"
	KeyTags         = "tags"

	// TagKeyPrefix marks the per-tag membership keys written next to KeyTags.
	TagKeyPrefix = "tag:"
)

// TagKey is the metadata key whose presence marks a record as carrying tag.
// Filtering on TagKey(tag) = "1" selects records with that tag.
func TagKey(tag string) string {
	return TagKeyPrefix + tag
}

// RecordID is the deterministic vector record id of a chunk. Re-ingesting the
// same document overwrites chunk N in place.
func RecordID(documentID string, chunkIndex int) string {
	return documentID + "-" + strconv.Itoa(chunkIndex)
}

// NewRecordMetadata combines chunk metadata with its content and the document tags.
func NewRecordMetadata(c Chunk, tags []string) RecordMetadata {
	return RecordMetadata{
		ChunkMetadata: c.Metadata,
		Content:       c.Content,
		Tags:          tags,
	}
}

// Flatten encodes metadata as the string map stored by the vector index.
// Tags are kept in order as a JSON list under KeyTags and once more as
// TagKey entries so every backend can match a single tag exactly.
func (m RecordMetadata) Flatten() map[string]string {
	flat := map[string]string{
		KeyDocumentID:   m.DocumentID,
		KeyDocumentName: m.DocumentName,
		KeySection:      m.Section,
		KeyChunkIndex:   strconv.Itoa(m.ChunkIndex),
		KeyTotalChunks:  strconv.Itoa(m.TotalChunks),
		KeyContent:      m.Content,
	}
	if len(m.Tags) > 0 {
		encoded, _ := json.Marshal(m.Tags)
		flat[KeyTags] = string(encoded)
		for _, tag := range m.Tags {
			flat[TagKey(tag)] = "1"
		}
	}
	return flat
}

// ParseRecordMetadata decodes a flattened metadata map. Missing or malformed
// fields are left at their zero value.
func ParseRecordMetadata(raw map[string]string) RecordMetadata {
	var m RecordMetadata
	if raw == nil {
		return m
	}
	m.DocumentID = raw[KeyDocumentID]
	m.DocumentName = raw[KeyDocumentName]
	m.Section = raw[KeySection]
	m.ChunkIndex, _ = strconv.Atoi(raw[KeyChunkIndex])
	m.TotalChunks, _ = strconv.Atoi(raw[KeyTotalChunks])
	m.Content = raw[KeyContent]
	if encoded := raw[KeyTags]; encoded != "" {
		var tags []string
		if err := json.Unmarshal([]byte(encoded), &tags); err == nil && len(tags) > 0 {
			m.Tags = tags
		}
	}
	return m
}
