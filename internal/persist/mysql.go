package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StateEntry struct {
	EntryKey  string    `gorm:"column:entry_key;size:191;primaryKey"`
	Value     string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

func (StateEntry) TableName() string {
	return "state_entries"
}

// MySQLBackend keeps the state in a key/value table. The gorm handle is
// shared with other components, so Close leaves it open.
type MySQLBackend struct {
	db *gorm.DB
}

func NewMySQLBackend(db *gorm.DB) (*MySQLBackend, error) {
	if err := db.AutoMigrate(&StateEntry{}); err != nil {
		return nil, fmt.Errorf("auto migrate state_entries failed: %w", err)
	}
	return &MySQLBackend{db: db}, nil
}

func (m *MySQLBackend) Get(ctx context.Context, key string) (string, error) {
	var entry StateEntry
	err := m.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mysql get %s failed: %w", key, err)
	}
	return entry.Value, nil
}

func (m *MySQLBackend) Set(ctx context.Context, key, value string) error {
	entry := StateEntry{EntryKey: key, Value: value, UpdatedAt: time.Now()}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("mysql set %s failed: %w", key, err)
	}
	return nil
}

func (m *MySQLBackend) Delete(ctx context.Context, key string) error {
	if err := m.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&StateEntry{}).Error; err != nil {
		return fmt.Errorf("mysql delete %s failed: %w", key, err)
	}
	return nil
}

func (m *MySQLBackend) Close() error { return nil }
