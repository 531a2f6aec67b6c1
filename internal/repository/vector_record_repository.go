package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledgebot/internal/model"
)

type VectorRecordRepository struct {
	db *gorm.DB
}

func NewVectorRecordRepository(db *gorm.DB) *VectorRecordRepository {
	return &VectorRecordRepository{db: db}
}

// UpsertBatch writes records, replacing rows with the same namespace and record id.
func (r *VectorRecordRepository) UpsertBatch(ctx context.Context, records []model.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
	if err != nil {
		return fmt.Errorf("upsert vector records failed: %w", err)
	}
	return nil
}

// ListByNamespace returns every record of a namespace, optionally narrowed to one document.
func (r *VectorRecordRepository) ListByNamespace(ctx context.Context, namespace, documentID string) ([]model.VectorRecord, error) {
	q := r.db.WithContext(ctx).Where("namespace = ?", namespace)
	if documentID != "" {
		q = q.Where("document_id = ?", documentID)
	}
	var list []model.VectorRecord
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list vector records failed: %w", err)
	}
	return list, nil
}

func (r *VectorRecordRepository) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND record_id IN ?", namespace, ids).
		Delete(&model.VectorRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete vector records failed: %w", err)
	}
	return nil
}

func (r *VectorRecordRepository) DeleteByDocumentID(ctx context.Context, namespace, documentID string) error {
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND document_id = ?", namespace, documentID).
		Delete(&model.VectorRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete vector records by document failed: %w", err)
	}
	return nil
}

// CountByNamespace returns the number of records per namespace.
func (r *VectorRecordRepository) CountByNamespace(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Namespace string
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&model.VectorRecord{}).
		Select("namespace, COUNT(*) AS total").
		Group("namespace").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count vector records failed: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Namespace] = row.Total
	}
	return counts, nil
}
