package database

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// DB is the global journal database instance
var DB *sql.DB

// Init opens the journal database and creates the schema
func Init(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// an in-memory database lives only as long as its single connection
	DB.SetMaxOpenConns(1)

	return EnsureSchema()
}

// Close closes the journal database if it was opened
func Close() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}

// EnsureSchema creates all necessary database tables
func EnsureSchema() error {
	_, err := DB.Exec(`
CREATE TABLE IF NOT EXISTS alerts (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  endpoint TEXT NOT NULL,
  transition TEXT NOT NULL,
  severity TEXT NOT NULL,
  previous_status TEXT NOT NULL,
  current_status TEXT NOT NULL,
  message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_endpoint ON alerts(endpoint);

CREATE TABLE IF NOT EXISTS system_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp TEXT NOT NULL,
  level TEXT NOT NULL,
  category TEXT NOT NULL,
  service TEXT,
  message TEXT NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON system_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_logs_level ON system_logs(level);
`)
	return err
}
