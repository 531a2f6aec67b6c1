package model

import (
	"encoding/json"
	"time"
)

// VectorRecord stores one embedded chunk for the SQL-backed vector index.
// Embedding and metadata are JSON columns for portability.
type VectorRecord struct {
	Namespace  string    `gorm:"primaryKey;size:64" json:"namespace"`
	RecordID   string    `gorm:"primaryKey;size:191" json:"record_id"`
	DocumentID string    `gorm:"size:64;index" json:"document_id"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	Metadata   string    `gorm:"type:mediumtext" json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (r *VectorRecord) EmbeddingVector() []float32 {
	if r.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(r.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (r *VectorRecord) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		r.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	r.Embedding = string(b)
}

// MetadataMap returns the decoded metadata; nil on parse error.
func (r *VectorRecord) MetadataMap() map[string]string {
	if r.Metadata == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(r.Metadata), &m); err != nil {
		return nil
	}
	return m
}

func (r *VectorRecord) SetMetadata(m map[string]string) {
	b, _ := json.Marshal(m)
	r.Metadata = string(b)
}
