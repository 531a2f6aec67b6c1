package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/internal/model"
	"knowledgebot/internal/platform/sqlite"
)

func newSQLRepo(t *testing.T) *SQLDocumentRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLDocumentRepository(db)
}

func TestSQLDocumentRepository_PutGet(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	err := repo.Put(ctx, &model.KnowledgeDocument{
		ID:             "doc_1",
		Filename:       "guia.md",
		ChunksCount:    4,
		Tags:           []string{"venta", "casa"},
		ContentPreview: "# Guía",
		CreatedAt:      created,
	})
	require.NoError(t, err)

	doc, err := repo.Get(ctx, "doc_1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "guia.md", doc.Filename)
	assert.Equal(t, 4, doc.ChunksCount)
	assert.Equal(t, []string{"venta", "casa"}, doc.Tags)
	assert.Equal(t, "# Guía", doc.ContentPreview)
	assert.True(t, created.Equal(doc.CreatedAt))

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLDocumentRepository_PutReplaces(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &model.KnowledgeDocument{ID: "doc_1", Filename: "a.md", ChunksCount: 1}))
	require.NoError(t, repo.Put(ctx, &model.KnowledgeDocument{ID: "doc_1", Filename: "b.md", ChunksCount: 2}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b.md", list[0].Filename)
	assert.Equal(t, []string{}, list[0].Tags)
}

func TestSQLDocumentRepository_ListNewestFirstAndDelete(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Put(ctx, &model.KnowledgeDocument{
			ID:        id,
			Filename:  id + ".md",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, repo.Delete(ctx, "b"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
