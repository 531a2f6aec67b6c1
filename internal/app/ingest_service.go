package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
)

const previewLength = 200

// ChunkIndexer is the write side of the knowledge index.
type ChunkIndexer interface {
	UpsertChunks(ctx context.Context, chunks []knowledge.Chunk, tags []string) (int, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

type IngestInput struct {
	// DocumentID re-ingests an existing document when set.
	DocumentID string
	Filename   string
	Content    string
}

type IngestResult struct {
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	ChunksCount int      `json:"chunks_count"`
	Tags        []string `json:"tags"`
}

type IngestService struct {
	index     ChunkIndexer
	store     DocumentStore
	publisher IngestPublisher
	chunker   *knowledge.Chunker
	tagger    *knowledge.TagExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewIngestService wires the ingestion pipeline. publisher may be nil when
// asynchronous ingestion is disabled.
func NewIngestService(
	index ChunkIndexer,
	store DocumentStore,
	publisher IngestPublisher,
	chunker *knowledge.Chunker,
	tagger *knowledge.TagExtractor,
	logger *slog.Logger,
) *IngestService {
	if chunker == nil {
		chunker = knowledge.NewChunker()
	}
	if tagger == nil {
		tagger = knowledge.NewTagExtractor(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		index:     index,
		store:     store,
		publisher: publisher,
		chunker:   chunker,
		tagger:    tagger,
		logger:    logger,
		now:       time.Now,
	}
}

func validateIngestInput(input IngestInput) (IngestInput, error) {
	input.Filename = strings.TrimSpace(input.Filename)
	input.DocumentID = strings.TrimSpace(input.DocumentID)
	if strings.TrimSpace(input.Content) == "" {
		return input, fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}
	if input.Filename == "" {
		return input, fmt.Errorf("%w: filename is empty", ErrInvalidInput)
	}
	return input, nil
}

// NewDocumentID allocates an id of the form doc_<unix millis>_<7 hex chars>.
func (s *IngestService) NewDocumentID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return "doc_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + suffix
}

// Ingest chunks, tags, indexes and records a document. When input carries a
// DocumentID, the document's previous vectors are removed before indexing.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	input, err := validateIngestInput(input)
	if err != nil {
		return nil, err
	}

	replacing := input.DocumentID != ""
	documentID := input.DocumentID
	if !replacing {
		documentID = s.NewDocumentID()
	}

	chunks := s.chunker.Chunk(input.Content, documentID, input.Filename)
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}
	tags := s.tagger.Extract(input.Content)

	if replacing {
		if err := s.index.DeleteByDocumentID(ctx, documentID); err != nil {
			return nil, err
		}
	}

	written, err := s.index.UpsertChunks(ctx, chunks, tags)
	if err != nil {
		return nil, err
	}

	doc := &model.KnowledgeDocument{
		ID:             documentID,
		Filename:       input.Filename,
		ChunksCount:    len(chunks),
		Tags:           tags,
		ContentPreview: preview(input.Content),
		CreatedAt:      s.now(),
	}
	if err := s.store.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document record failed: %w", err)
	}

	s.logger.Info("document ingested",
		"document_id", documentID,
		"filename", input.Filename,
		"chunks", written,
		"tags", strings.Join(tags, ","),
		"replaced", replacing,
	)
	return &IngestResult{
		DocumentID:  documentID,
		Filename:    input.Filename,
		ChunksCount: written,
		Tags:        tags,
	}, nil
}

// Enqueue validates the input, allocates the document id and hands the job to
// the ingestion queue. The returned id is final.
func (s *IngestService) Enqueue(ctx context.Context, input IngestInput) (string, error) {
	if s.publisher == nil {
		return "", ErrQueueUnavailable
	}
	input, err := validateIngestInput(input)
	if err != nil {
		return "", err
	}
	documentID := input.DocumentID
	if documentID == "" {
		documentID = s.NewDocumentID()
	}

	job := model.IngestJob{DocumentID: documentID, Filename: input.Filename, Content: input.Content}
	if err := s.publisher.Publish(ctx, job); err != nil {
		s.logger.Error("enqueue ingestion failed", "document_id", documentID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrEnqueue, err)
	}
	return documentID, nil
}

// DeleteDocument removes a document's vectors and then its record.
func (s *IngestService) DeleteDocument(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("%w: document id is empty", ErrInvalidInput)
	}
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.index.DeleteByDocumentID(ctx, documentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, documentID); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", documentID)
	return nil
}

// ListDocuments returns ingestion records, newest first.
func (s *IngestService) ListDocuments(ctx context.Context) ([]model.KnowledgeDocument, error) {
	return s.store.List(ctx)
}

func (s *IngestService) GetDocument(ctx context.Context, documentID string) (*model.KnowledgeDocument, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is empty", ErrInvalidInput)
	}
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
