package model

import "time"

// KnowledgeDocument is the ingestion record of a document in the knowledge base.
type KnowledgeDocument struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Filename       string    `gorm:"size:256;not null" json:"filename"`
	ChunksCount    int       `gorm:"not null" json:"chunks_count"`
	Tags           []string  `gorm:"serializer:json;type:text" json:"tags"`
	ContentPreview string    `gorm:"type:text" json:"content_preview"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
