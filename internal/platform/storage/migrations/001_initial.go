package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial creates the session key/value table.
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create session_entries key/value table"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace VARCHAR(255) NOT NULL DEFAULT 'default',
			key VARCHAR(255) NOT NULL,
			value TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(namespace, key)
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_entries_namespace ON session_entries(namespace)`).Error
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS session_entries`).Error
}
