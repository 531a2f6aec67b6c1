package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"knowledgebot/internal/ai"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
	"knowledgebot/internal/vectorindex"
)

// keywordEmbedder maps text onto three axes: "venta", "casa" and anything else.
type keywordEmbedder struct {
	batchCalls [][]string
	err        error
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "venta"):
		return []float32{1, 0, 0.1}
	case strings.Contains(lower, "casa"):
		return []float32{0, 1, 0.1}
	default:
		return []float32{0.1, 0.1, 1}
	}
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.batchCalls = append(e.batchCalls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// recordingIndex records every call and serves canned matches.
type recordingIndex struct {
	upserts      [][]vectorindex.Record
	failUpsertAt int
	upsertErr    error

	queries []struct {
		namespace string
		topK      int
		filter    vectorindex.Filter
	}
	matches  []vectorindex.Match
	queryErr error

	deletedFilters []vectorindex.Filter
	deletedIDs     [][]string
	deleteErr      error

	stats vectorindex.Stats
}

func (ix *recordingIndex) Upsert(_ context.Context, _ string, records []vectorindex.Record) error {
	if ix.upsertErr != nil && len(ix.upserts) == ix.failUpsertAt {
		return ix.upsertErr
	}
	ix.upserts = append(ix.upserts, records)
	return nil
}

func (ix *recordingIndex) Query(_ context.Context, namespace string, _ []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	ix.queries = append(ix.queries, struct {
		namespace string
		topK      int
		filter    vectorindex.Filter
	}{namespace, topK, filter})
	return ix.matches, ix.queryErr
}

func (ix *recordingIndex) DeleteByFilter(_ context.Context, _ string, filter vectorindex.Filter) error {
	ix.deletedFilters = append(ix.deletedFilters, filter)
	return ix.deleteErr
}

func (ix *recordingIndex) DeleteByIDs(_ context.Context, _ string, ids []string) error {
	ix.deletedIDs = append(ix.deletedIDs, ids)
	return ix.deleteErr
}

func (ix *recordingIndex) DescribeStats(context.Context) (vectorindex.Stats, error) {
	return ix.stats, nil
}

type fakeCompleter struct {
	requests []ai.CompletionRequest
	answer   string
	err      error
}

func (c *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	return c.answer, c.err
}

type fakeRetriever struct {
	results []knowledge.SearchResult
	err     error
	opts    []SearchOptions
	queries []string
}

func (r *fakeRetriever) Search(_ context.Context, query string, opts SearchOptions) ([]knowledge.SearchResult, error) {
	r.queries = append(r.queries, query)
	r.opts = append(r.opts, opts)
	return r.results, r.err
}

type memoryStore struct {
	mu     sync.Mutex
	docs   map[string]model.KnowledgeDocument
	putErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]model.KnowledgeDocument)}
}

func (s *memoryStore) Put(_ context.Context, doc *model.KnowledgeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*model.KnowledgeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *memoryStore) List(context.Context) ([]model.KnowledgeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.KnowledgeDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// orderedIndexer records the order of index calls made during ingestion.
type orderedIndexer struct {
	calls     []string
	upserted  []knowledge.Chunk
	tags      []string
	upsertErr error
}

func (o *orderedIndexer) UpsertChunks(_ context.Context, chunks []knowledge.Chunk, tags []string) (int, error) {
	o.calls = append(o.calls, "upsert")
	if o.upsertErr != nil {
		return 0, o.upsertErr
	}
	o.upserted = chunks
	o.tags = tags
	return len(chunks), nil
}

func (o *orderedIndexer) DeleteByDocumentID(_ context.Context, documentID string) error {
	o.calls = append(o.calls, "delete:"+documentID)
	return nil
}

type fakePublisher struct {
	jobs []model.IngestJob
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, job model.IngestJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type fakeHistoryCache struct {
	stored   map[string][]knowledge.ConversationTurn
	getErr   error
	appended map[string][]knowledge.ConversationTurn
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{
		stored:   make(map[string][]knowledge.ConversationTurn),
		appended: make(map[string][]knowledge.ConversationTurn),
	}
}

func (c *fakeHistoryCache) GetHistory(_ context.Context, id string) ([]knowledge.ConversationTurn, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	turns, ok := c.stored[id]
	return turns, ok, nil
}

func (c *fakeHistoryCache) AppendHistory(_ context.Context, id string, turns ...knowledge.ConversationTurn) error {
	c.appended[id] = append(c.appended[id], turns...)
	return nil
}

type fakeResponder struct {
	reply    string
	err      error
	queries  []string
	historys [][]knowledge.ConversationTurn
}

func (r *fakeResponder) GenerateResponse(_ context.Context, query string, history []knowledge.ConversationTurn) (string, error) {
	r.queries = append(r.queries, query)
	r.historys = append(r.historys, history)
	return r.reply, r.err
}
