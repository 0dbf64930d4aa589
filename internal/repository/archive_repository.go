package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studymate/internal/model"
)

type ArchiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository migrates the archived_messages table.
func NewArchiveRepository(db *gorm.DB) (*ArchiveRepository, error) {
	if err := db.AutoMigrate(&model.ArchivedMessage{}); err != nil {
		return nil, fmt.Errorf("migrate archived messages failed: %w", err)
	}
	return &ArchiveRepository{db: db}, nil
}

// Save inserts msg. A redelivered message with a known MessageID is a no-op.
func (r *ArchiveRepository) Save(ctx context.Context, msg *model.ArchivedMessage) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(msg).Error
	if err != nil {
		return fmt.Errorf("archive message failed: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) ListByConversation(ctx context.Context, ownerID, conversationID string, limit int) ([]model.ArchivedMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.ArchivedMessage
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND conversation_id = ?", ownerID, conversationID).
		Order("timestamp ASC, id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list archived messages failed: %w", err)
	}
	return messages, nil
}
