// Package gormindex keeps vectors in a relational table through gorm and
// scores them in process. It suits small knowledge bases that already run
// on MySQL.
package gormindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"knowledgebot/internal/model"
	"knowledgebot/internal/vectorindex"
)

// documentIDKey is stored in its own indexed column.
const documentIDKey = "documentId"

var errNoEmbedding = errors.New("gormindex: record has no embedding")

// Store is the persistence the index needs. *repository.VectorRecordRepository satisfies it.
type Store interface {
	UpsertBatch(ctx context.Context, records []model.VectorRecord) error
	ListByNamespace(ctx context.Context, namespace, documentID string) ([]model.VectorRecord, error)
	DeleteByIDs(ctx context.Context, namespace string, ids []string) error
	DeleteByDocumentID(ctx context.Context, namespace, documentID string) error
	CountByNamespace(ctx context.Context) (map[string]int, error)
}

type Index struct {
	store Store
}

var _ vectorindex.Index = (*Index)(nil)

func New(store Store) *Index {
	return &Index{store: store}
}

func (x *Index) Upsert(ctx context.Context, namespace string, records []vectorindex.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]model.VectorRecord, len(records))
	for i, r := range records {
		if len(r.Values) == 0 {
			return fmt.Errorf("%w: %s", errNoEmbedding, r.ID)
		}
		rows[i] = model.VectorRecord{
			Namespace:  namespace,
			RecordID:   r.ID,
			DocumentID: r.Metadata[documentIDKey],
		}
		rows[i].SetEmbedding(r.Values)
		rows[i].SetMetadata(r.Metadata)
	}
	return x.store.UpsertBatch(ctx, rows)
}

func (x *Index) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	rows, err := x.store.ListByNamespace(ctx, namespace, filter[documentIDKey])
	if err != nil {
		return nil, err
	}

	matches := make([]vectorindex.Match, 0, len(rows))
	for i := range rows {
		meta := rows[i].MetadataMap()
		if !matchesFilter(meta, filter) {
			continue
		}
		matches = append(matches, vectorindex.Match{
			ID:       rows[i].RecordID,
			Score:    cosineSimilarity(vector, rows[i].EmbeddingVector()),
			Metadata: meta,
		})
	}
	return topKMatches(matches, topK), nil
}

func (x *Index) DeleteByFilter(ctx context.Context, namespace string, filter vectorindex.Filter) error {
	if len(filter) == 0 {
		return errors.New("gormindex: delete requires a filter")
	}
	documentID, ok := filter[documentIDKey]
	if ok && len(filter) == 1 {
		return x.store.DeleteByDocumentID(ctx, namespace, documentID)
	}

	rows, err := x.store.ListByNamespace(ctx, namespace, documentID)
	if err != nil {
		return err
	}
	var ids []string
	for i := range rows {
		if matchesFilter(rows[i].MetadataMap(), filter) {
			ids = append(ids, rows[i].RecordID)
		}
	}
	return x.store.DeleteByIDs(ctx, namespace, ids)
}

func (x *Index) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	return x.store.DeleteByIDs(ctx, namespace, ids)
}

func (x *Index) DescribeStats(ctx context.Context) (vectorindex.Stats, error) {
	counts, err := x.store.CountByNamespace(ctx)
	if err != nil {
		return vectorindex.Stats{}, err
	}
	stats := vectorindex.Stats{Namespaces: counts}
	for _, n := range counts {
		stats.TotalCount += n
	}
	return stats, nil
}

func matchesFilter(meta map[string]string, filter vectorindex.Filter) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// topKMatches sorts by descending score, ties by id.
func topKMatches(matches []vectorindex.Match, k int) []vectorindex.Match {
	if k <= 0 || len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
