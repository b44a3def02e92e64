package chatlog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/blockedby/hopii/internal/models"
)

// Store persists chat log records.
type Store interface {
	SaveBatch(ctx context.Context, records []models.ChatLogRecord) error
}

// GormStore writes records to the chat_log table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the chat_log table from the model. Used for sqlite,
// postgres schemas come from the migrations.
func (s *GormStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&models.ChatLogRecord{}); err != nil {
		return fmt.Errorf("migrate chat_log: %w", err)
	}
	return nil
}

// SaveBatch inserts records in one transaction.
func (s *GormStore) SaveBatch(ctx context.Context, records []models.ChatLogRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// Recent returns the newest records, newest first.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]models.ChatLogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.ChatLogRecord
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query chat log: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records, optionally only relevant ones.
func (s *GormStore) Count(ctx context.Context, relevantOnly bool) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.ChatLogRecord{})
	if relevantOnly {
		q = q.Where("relevant = ?", true)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chat log: %w", err)
	}
	return n, nil
}
