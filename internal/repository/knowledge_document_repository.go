package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledgebot/internal/model"
)

// KnowledgeDocumentRepository stores ingestion records in MySQL.
type KnowledgeDocumentRepository struct {
	db *gorm.DB
}

func NewKnowledgeDocumentRepository(db *gorm.DB) *KnowledgeDocumentRepository {
	return &KnowledgeDocumentRepository{db: db}
}

// Put inserts the record or replaces the one with the same id.
func (r *KnowledgeDocumentRepository) Put(ctx context.Context, doc *model.KnowledgeDocument) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(doc).Error
	if err != nil {
		return fmt.Errorf("save knowledge document failed: %w", err)
	}
	return nil
}

func (r *KnowledgeDocumentRepository) Get(ctx context.Context, id string) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get knowledge document failed: %w", err)
	}
	return &doc, nil
}

func (r *KnowledgeDocumentRepository) List(ctx context.Context) ([]model.KnowledgeDocument, error) {
	var list []model.KnowledgeDocument
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list knowledge documents failed: %w", err)
	}
	return list, nil
}

func (r *KnowledgeDocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.KnowledgeDocument{}).Error; err != nil {
		return fmt.Errorf("delete knowledge document failed: %w", err)
	}
	return nil
}
