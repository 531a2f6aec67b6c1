package model

// IngestJob is the queue payload for asynchronous document ingestion.
type IngestJob struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
}
