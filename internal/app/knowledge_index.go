package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/vectorindex"
)

const (
	DefaultNamespace  = "knowledge"
	DefaultSearchTopK = 5

	upsertBatchSize = 100
	deleteBatchSize = 1000
)

// SearchOptions narrows a similarity search. A zero TopK means DefaultSearchTopK.
// DocumentID and every entry of Tags are ANDed with Filter.
type SearchOptions struct {
	TopK       int
	Filter     vectorindex.Filter
	DocumentID string
	Tags       []string
}

// filter merges the options into one metadata filter. A "tags" entry in
// Filter is read as a comma-separated list of required tags.
func (o SearchOptions) filter() vectorindex.Filter {
	out := make(vectorindex.Filter, len(o.Filter)+len(o.Tags)+1)
	for k, v := range o.Filter {
		if k == knowledge.KeyTags {
			for _, tag := range strings.Split(v, ",") {
				addTag(out, tag)
			}
			continue
		}
		out[k] = v
	}
	for _, tag := range o.Tags {
		addTag(out, tag)
	}
	if id := strings.TrimSpace(o.DocumentID); id != "" {
		out[knowledge.KeyDocumentID] = id
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func addTag(f vectorindex.Filter, tag string) {
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
		f[knowledge.TagKey(tag)] = "1"
	}
}

// KnowledgeIndex embeds chunks and queries into a single namespace of a vector index.
type KnowledgeIndex struct {
	embedder  Embedder
	index     vectorindex.Index
	namespace string
	logger    *slog.Logger
}

func NewKnowledgeIndex(embedder Embedder, index vectorindex.Index, namespace string, logger *slog.Logger) *KnowledgeIndex {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeIndex{
		embedder:  embedder,
		index:     index,
		namespace: namespace,
		logger:    logger,
	}
}

func (k *KnowledgeIndex) Namespace() string {
	return k.namespace
}

// UpsertChunks embeds all chunk contents in one batched call and writes one
// record per chunk, 100 records per write. It returns the number written.
// A failed write stops the remaining batches; earlier batches stay written.
func (k *KnowledgeIndex) UpsertChunks(ctx context.Context, chunks []knowledge.Chunk, tags []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := k.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks failed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ID:       knowledge.RecordID(c.Metadata.DocumentID, c.Metadata.ChunkIndex),
			Values:   vectors[i],
			Metadata: knowledge.NewRecordMetadata(c, tags).Flatten(),
		}
	}

	written := 0
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := k.index.Upsert(ctx, k.namespace, records[start:end]); err != nil {
			return written, fmt.Errorf("upsert vectors failed: %w", err)
		}
		written += end - start
	}

	k.logger.Debug("upserted chunks", "namespace", k.namespace, "count", written)
	return written, nil
}

// Search embeds the query and returns matches in the order the index ranked them.
func (k *KnowledgeIndex) Search(ctx context.Context, query string, opts SearchOptions) ([]knowledge.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultSearchTopK
	}

	vector, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	matches, err := k.index.Query(ctx, k.namespace, vector, topK, opts.filter())
	if err != nil {
		return nil, fmt.Errorf("query vectors failed: %w", err)
	}

	results := make([]knowledge.SearchResult, len(matches))
	for i, m := range matches {
		meta := knowledge.ParseRecordMetadata(m.Metadata)
		results[i] = knowledge.SearchResult{
			ID:       m.ID,
			Score:    float64(m.Score),
			Content:  meta.Content,
			Metadata: meta,
		}
	}
	return results, nil
}

// DeleteByDocumentID removes every record whose documentId metadata matches.
func (k *KnowledgeIndex) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id is empty", ErrInvalidInput)
	}
	filter := vectorindex.Filter{knowledge.KeyDocumentID: documentID}
	if err := k.index.DeleteByFilter(ctx, k.namespace, filter); err != nil {
		return fmt.Errorf("delete document vectors failed: %w", err)
	}
	return nil
}

// DeleteByIDs removes records in batches of 1000 ids.
func (k *KnowledgeIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := k.index.DeleteByIDs(ctx, k.namespace, ids[start:end]); err != nil {
			return fmt.Errorf("delete vectors failed: %w", err)
		}
	}
	return nil
}

func (k *KnowledgeIndex) Stats(ctx context.Context) (vectorindex.Stats, error) {
	stats, err := k.index.DescribeStats(ctx)
	if err != nil {
		return vectorindex.Stats{}, fmt.Errorf("describe index stats failed: %w", err)
	}
	return stats, nil
}
