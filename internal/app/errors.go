package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoContent        = errors.New("document has no extractable content")
	ErrDocumentNotFound = errors.New("document not found")
	ErrQueueUnavailable = errors.New("ingestion queue is not configured")
	ErrEnqueue          = errors.New("ingestion enqueue failed")
)
