package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	assert.Equal(t, "doc1-0", RecordID("doc1", 0))
	assert.Equal(t, "doc_1700000000000_abc-12", RecordID("doc_1700000000000_abc", 12))
}

func TestRecordMetadata_Flatten(t *testing.T) {
	chunk := Chunk{
		Content: "body",
		Metadata: ChunkMetadata{
			DocumentID:   "doc1",
			DocumentName: "guide.md",
			Section:      "Intro",
			ChunkIndex:   3,
			TotalChunks:  7,
		},
	}

	flat := NewRecordMetadata(chunk, []string{"venta", "casa"}).Flatten()

	assert.Equal(t, "doc1", flat[KeyDocumentID])
	assert.Equal(t, "3", flat[KeyChunkIndex])
	assert.Equal(t, "7", flat[KeyTotalChunks])
	assert.Equal(t, "body", flat[KeyContent])
	assert.Equal(t, `["venta","casa"]`, flat[KeyTags])
	assert.Equal(t, "1", flat[TagKey("venta")])
	assert.Equal(t, "1", flat[TagKey("casa")])

	parsed := ParseRecordMetadata(flat)
	assert.Equal(t, chunk.Metadata, parsed.ChunkMetadata)
	assert.Equal(t, []string{"venta", "casa"}, parsed.Tags)
}

func TestRecordMetadata_TagsRoundTrip(t *testing.T) {
	tags := []string{"venta,", "compra y venta", "guía"}

	parsed := ParseRecordMetadata(RecordMetadata{Tags: tags}.Flatten())

	assert.Equal(t, tags, parsed.Tags)
}

func TestRecordMetadata_NoTags(t *testing.T) {
	flat := RecordMetadata{}.Flatten()

	assert.NotContains(t, flat, KeyTags)
	assert.Nil(t, ParseRecordMetadata(flat).Tags)
	assert.Nil(t, ParseRecordMetadata(map[string]string{KeyTags: "venta,casa"}).Tags)
}

func TestParseRecordMetadata_Missing(t *testing.T) {
	m := ParseRecordMetadata(map[string]string{KeyChunkIndex: "nope"})

	assert.Equal(t, 0, m.ChunkIndex)
	assert.Equal(t, "", m.Content)
	assert.Nil(t, m.Tags)
	assert.Equal(t, RecordMetadata{}, ParseRecordMetadata(nil))
}
