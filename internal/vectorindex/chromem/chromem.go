// Package chromem is an embedded vectorindex.Index backed by chromem-go.
// Each namespace is a collection.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"knowledgebot/internal/vectorindex"
)

var errNoEmbedding = errors.New("records must carry their own embedding")

type Index struct {
	db *chromem.DB
}

// New returns an in-memory index.
func New() *Index {
	return &Index{db: chromem.NewDB()}
}

// NewPersistent loads or creates an index stored under path.
func NewPersistent(path string, compress bool) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db failed: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) collection(namespace string) (*chromem.Collection, error) {
	c, err := ix.db.GetOrCreateCollection(namespace, map[string]string{"hnsw:space": "cosine"}, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open collection %q failed: %w", namespace, err)
	}
	return c, nil
}

func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

func (ix *Index) Upsert(ctx context.Context, namespace string, records []vectorindex.Record) error {
	if len(records) == 0 {
		return nil
	}
	c, err := ix.collection(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Values) == 0 {
			return fmt.Errorf("record %s: %w", r.ID, errNoEmbedding)
		}
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  r.Metadata,
			Embedding: r.Values,
			Content:   r.Metadata["content"],
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem upsert failed: %w", err)
	}
	return nil
}

func (ix *Index) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	c, err := ix.collection(namespace)
	if err != nil {
		return nil, err
	}
	n := topK
	if count := c.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}
	matches := make([]vectorindex.Match, len(results))
	for i, r := range results {
		matches[i] = vectorindex.Match{ID: r.ID, Score: r.Similarity, Metadata: r.Metadata}
	}
	return matches, nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, namespace string, filter vectorindex.Filter) error {
	if len(filter) == 0 {
		return errors.New("delete by filter needs at least one condition")
	}
	c, err := ix.collection(namespace)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, filter, nil); err != nil {
		return fmt.Errorf("chromem delete failed: %w", err)
	}
	return nil
}

func (ix *Index) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := ix.collection(namespace)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("chromem delete failed: %w", err)
	}
	return nil
}

func (ix *Index) DescribeStats(_ context.Context) (vectorindex.Stats, error) {
	stats := vectorindex.Stats{Namespaces: make(map[string]int)}
	for name, c := range ix.db.ListCollections() {
		stats.Namespaces[name] = c.Count()
		stats.TotalCount += c.Count()
	}
	return stats, nil
}
