package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/internal/vectorindex"
)

type fakePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant keeps points per collection and answers searches in insertion order.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]fakePoint
	created     []string
	lastFilter  map[string]any
	apiKeys     []string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string][]fakePoint)}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 1 && r.Method == http.MethodGet {
		var cols []map[string]string
		for name := range f.collections {
			cols = append(cols, map[string]string{"name": name})
		}
		cols = append(cols, map[string]string{"name": "unrelated"})
		writeJSON(w, map[string]any{"result": map[string]any{"collections": cols}})
		return
	}

	name := parts[1]
	points, exists := f.collections[name]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		if !exists {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"result": map[string]any{"points_count": len(points)}})
	case len(parts) == 2 && r.Method == http.MethodPut:
		f.collections[name] = nil
		f.created = append(f.created, name)
		writeJSON(w, map[string]any{"result": true})
	case !exists:
		http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
	case parts[2] == "points" && len(parts) == 3 && r.Method == http.MethodPut:
		var body struct {
			Points []fakePoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			replaced := false
			for i := range points {
				if points[i].ID == p.ID {
					points[i] = p
					replaced = true
				}
			}
			if !replaced {
				points = append(points, p)
			}
		}
		f.collections[name] = points
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	case len(parts) == 4 && parts[3] == "search":
		var body struct {
			Limit  int            `json:"limit"`
			Filter map[string]any `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastFilter = body.Filter
		var result []map[string]any
		for i, p := range points {
			if i >= body.Limit {
				break
			}
			result = append(result, map[string]any{"id": p.ID, "score": 1.0 - float64(i)*0.1, "payload": p.Payload})
		}
		writeJSON(w, map[string]any{"result": result})
	case len(parts) == 4 && parts[3] == "delete":
		var body struct {
			Points []string       `json:"points"`
			Filter map[string]any `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastFilter = body.Filter
		kept := points[:0]
		for _, p := range points {
			if !f.matchesDelete(p, body.Points, body.Filter) {
				kept = append(kept, p)
			}
		}
		f.collections[name] = kept
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func (f *fakeQdrant) matchesDelete(p fakePoint, ids []string, filter map[string]any) bool {
	for _, id := range ids {
		if id == p.ID {
			return true
		}
	}
	if filter == nil {
		return false
	}
	for _, cond := range filter["must"].([]any) {
		c := cond.(map[string]any)
		want := c["match"].(map[string]any)["value"]
		if p.Payload[c["key"].(string)] != want {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestIndex(t *testing.T) (*Index, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/", APIKey: "secret", CollectionPrefix: "kb"}), fake
}

func records() []vectorindex.Record {
	return []vectorindex.Record{
		{ID: "doc1-0", Values: []float32{1, 0}, Metadata: map[string]string{"documentId": "doc1", "content": "uno"}},
		{ID: "doc1-1", Values: []float32{0, 1}, Metadata: map[string]string{"documentId": "doc1", "content": "dos"}},
		{ID: "doc2-0", Values: []float32{1, 1}, Metadata: map[string]string{"documentId": "doc2", "content": "tres"}},
	}
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("doc1-0"), PointID("doc1-0"))
	assert.NotEqual(t, PointID("doc1-0"), PointID("doc1-1"))
	assert.Len(t, PointID("doc1-0"), 36)
}

func TestIndex_UpsertCreatesCollectionOnce(t *testing.T) {
	ix, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, "knowledge", records()))
	require.NoError(t, ix.Upsert(ctx, "knowledge", records()[:1]))

	assert.Equal(t, []string{"kb_knowledge"}, fake.created)
	assert.Len(t, fake.collections["kb_knowledge"], 3)
	assert.Equal(t, "doc1-0", fake.collections["kb_knowledge"][0].Payload[recordIDKey])
	assert.Equal(t, PointID("doc1-0"), fake.collections["kb_knowledge"][0].ID)
	assert.Equal(t, "secret", fake.apiKeys[0])
}

func TestIndex_QueryMapsPayload(t *testing.T) {
	ix, fake := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, "knowledge", records()))

	matches, err := ix.Query(ctx, "knowledge", []float32{1, 0}, 2, vectorindex.Filter{"documentId": "doc1"})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc1-0", matches[0].ID)
	assert.Equal(t, float32(1), matches[0].Score)
	assert.Equal(t, map[string]string{"documentId": "doc1", "content": "uno"}, matches[0].Metadata)
	require.NotNil(t, fake.lastFilter)
	assert.Len(t, fake.lastFilter["must"], 1)
}

func TestMatchFilter_AllConditionsRequired(t *testing.T) {
	f := matchFilter(vectorindex.Filter{"tag:venta": "1"})

	assert.Equal(t, map[string]any{"must": []map[string]any{
		{"key": "tag:venta", "match": map[string]any{"value": "1"}},
	}}, f)
}

func TestIndex_QueryMissingCollection(t *testing.T) {
	ix, _ := newTestIndex(t)

	matches, err := ix.Query(context.Background(), "knowledge", []float32{1, 0}, 5, nil)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_Deletes(t *testing.T) {
	ix, fake := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, "knowledge", records()))

	require.NoError(t, ix.DeleteByFilter(ctx, "knowledge", vectorindex.Filter{"documentId": "doc1"}))
	assert.Len(t, fake.collections["kb_knowledge"], 1)

	require.NoError(t, ix.DeleteByIDs(ctx, "knowledge", []string{"doc2-0"}))
	assert.Empty(t, fake.collections["kb_knowledge"])

	assert.NoError(t, ix.DeleteByIDs(ctx, "missing", []string{"x"}))
	assert.Error(t, ix.DeleteByFilter(ctx, "knowledge", nil))
}

func TestIndex_DescribeStats(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, "knowledge", records()))
	require.NoError(t, ix.Upsert(ctx, "archive", records()[:1]))

	stats, err := ix.DescribeStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCount)
	assert.Equal(t, map[string]int{"knowledge": 3, "archive": 1}, stats.Namespaces)
}
