package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// sqlitePoolSize keeps a handful of WAL readers next to the single writer
const sqlitePoolSize = 4

// SQLiteDialect implements Dialect for SQLite through mattn/go-sqlite3
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables WAL and foreign keys on every pooled connection
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return config.Path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB, config DialectConfig) error {
	configurePool(db, config, sqlitePoolSize)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

func (d *SQLiteDialect) UpsertCounterQuery() string {
	return sqliteUpsertCounter
}

const sqliteMigrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT UNIQUE NOT NULL,
		executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
`

const sqliteUpsertCounter = `
	INSERT INTO counters (namespace, counter_key, counter_value) VALUES (?, ?, ?)
	ON CONFLICT (namespace, counter_key)
	DO UPDATE SET counter_value = excluded.counter_value, updated_at = CURRENT_TIMESTAMP
`
