package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/platform/storage/migrations"
)

// SessionEntry is one persisted key/value pair of the session store.
type SessionEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Namespace string `gorm:"size:255;not null;default:default;uniqueIndex:idx_session_ns_key"`
	Key       string `gorm:"size:255;not null;uniqueIndex:idx_session_ns_key"`
	Value     string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SessionEntry) TableName() string {
	return "session_entries"
}

// Migrations lists the schema migrations in order.
func Migrations() []Migration {
	return []Migration{
		&migrations.Migration001Initial{},
	}
}

// Open opens the sqlite database at dsn, creating its directory when dsn is
// a file path, and applies pending migrations.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New(errors.KindStorage, "storage.open", "empty sqlite dsn")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	if err := registered(db).RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

func registered(db *gorm.DB) *MigrationManager {
	manager := NewMigrationManager(db)
	for _, m := range Migrations() {
		manager.AddMigration(m)
	}
	return manager
}

// History returns the applied migrations, newest first.
func History(db *gorm.DB) ([]MigrationRecord, error) {
	return registered(db).GetMigrationHistory()
}

// Reset rolls every applied migration back, newest first, and applies them
// again. The session tables come back empty.
func Reset(db *gorm.DB) error {
	manager := registered(db)
	applied, err := manager.GetMigrationHistory()
	if err != nil {
		return err
	}
	for _, record := range applied {
		if err := manager.RollbackMigration(record.Version); err != nil {
			return err
		}
	}
	return manager.RunMigrations()
}

// Close releases the underlying sql.DB.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.close", "failed to get sql db", err)
	}
	return sqlDB.Close()
}
