package app

import (
	"context"

	"knowledgebot/internal/ai"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

// DocumentStore persists ingestion records. Get returns nil, nil for an unknown id.
type DocumentStore interface {
	Put(ctx context.Context, doc *model.KnowledgeDocument) error
	Get(ctx context.Context, id string) (*model.KnowledgeDocument, error)
	List(ctx context.Context) ([]model.KnowledgeDocument, error)
	Delete(ctx context.Context, id string) error
}

type IngestPublisher interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]knowledge.ConversationTurn, bool, error)
	AppendHistory(ctx context.Context, conversationID string, turns ...knowledge.ConversationTurn) error
}
