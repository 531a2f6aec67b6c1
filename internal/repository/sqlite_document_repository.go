package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"knowledgebot/internal/model"
)

// timeLayout sorts lexicographically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLDocumentRepository stores ingestion records in the local SQLite database.
type SQLDocumentRepository struct {
	db *sql.DB
}

func NewSQLDocumentRepository(db *sql.DB) *SQLDocumentRepository {
	return &SQLDocumentRepository{db: db}
}

func (r *SQLDocumentRepository) Put(ctx context.Context, doc *model.KnowledgeDocument) error {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags failed: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO knowledge_documents (id, filename, chunks_count, tags, content_preview, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			chunks_count = excluded.chunks_count,
			tags = excluded.tags,
			content_preview = excluded.content_preview,
			created_at = excluded.created_at`,
		doc.ID, doc.Filename, doc.ChunksCount, string(tagsJSON), doc.ContentPreview,
		doc.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save knowledge document failed: %w", err)
	}
	return nil
}

func (r *SQLDocumentRepository) Get(ctx context.Context, id string) (*model.KnowledgeDocument, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, chunks_count, tags, content_preview, created_at
		FROM knowledge_documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge document failed: %w", err)
	}
	return doc, nil
}

func (r *SQLDocumentRepository) List(ctx context.Context) ([]model.KnowledgeDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, chunks_count, tags, content_preview, created_at
		FROM knowledge_documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list knowledge documents failed: %w", err)
	}
	defer rows.Close()

	var list []model.KnowledgeDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge document failed: %w", err)
		}
		list = append(list, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list knowledge documents failed: %w", err)
	}
	return list, nil
}

func (r *SQLDocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM knowledge_documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete knowledge document failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.KnowledgeDocument, error) {
	var (
		doc       model.KnowledgeDocument
		tagsJSON  string
		createdAt string
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.ChunksCount, &tagsJSON, &doc.ContentPreview, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	doc.CreatedAt = t
	return &doc, nil
}
