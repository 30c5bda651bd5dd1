package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jabbusiness-client-go/internal/platform/storage"
)

type sqliteStore struct {
	db        *gorm.DB
	namespace string
	ownsDB    bool
}

// NewSQLite builds a store over the session_entries table. The schema is
// created by storage.Open.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:        db,
		namespace: namespaceOf(cfg),
	}, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	now := time.Now()
	entry := &storage.SessionEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry storage.SessionEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", s.namespace, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *sqliteStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("namespace = ? AND key IN ?", s.namespace, keys).
		Delete(&storage.SessionEntry{}).Error
}

func (s *sqliteStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&storage.SessionEntry{}).
		Where("namespace = ?", s.namespace).
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.SessionEntry{}).
		Where("namespace = ?", s.namespace).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":      DriverSQLite,
		"namespace": s.namespace,
		"total":     total,
	}, nil
}

// Close releases the database only when the store opened it itself.
func (s *sqliteStore) Close(context.Context) error {
	if !s.ownsDB {
		return nil
	}
	return storage.Close(s.db)
}
