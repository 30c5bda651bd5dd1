package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"jabbusiness-client-go/internal/platform/storage"
)

// Driver identifiers supported by the session store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates a session store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB != nil {
			return NewSQLite(deps.SQLiteDB, cfg)
		}
		if cfg.SQLite == nil || cfg.SQLite.DSN == "" {
			return nil, fmt.Errorf("sqlite driver requires database handle or dsn")
		}
		db, err := storage.Open(cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		s, _ := NewSQLite(db, cfg)
		s.(*sqliteStore).ownsDB = true
		return s, nil
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}
