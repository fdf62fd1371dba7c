package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectProperties(t *testing.T) {
	tests := []struct {
		name             string
		dialect          Dialect
		driver           string
		lastInsertID     bool
		migrationsSubdir string
	}{
		{name: "SQLite", dialect: NewSQLiteDialect(), driver: "sqlite3", lastInsertID: true, migrationsSubdir: "sqlite"},
		{name: "pure SQLite", dialect: NewPureSQLiteDialect(), driver: "sqlite", lastInsertID: true, migrationsSubdir: "sqlite"},
		{name: "PostgreSQL", dialect: NewPostgresDialect(), driver: "postgres", lastInsertID: false, migrationsSubdir: "postgres"},
		{name: "MySQL", dialect: NewMySQLDialect(), driver: "mysql", lastInsertID: true, migrationsSubdir: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.driver, tt.dialect.DriverName())
			assert.Equal(t, tt.lastInsertID, tt.dialect.SupportsLastInsertId())
			assert.Equal(t, tt.migrationsSubdir, tt.dialect.MigrationsSubdir())
			assert.Contains(t, tt.dialect.UpsertCounterQuery(), "counters")
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM learning_records WHERE id = ?",
			expected: "SELECT * FROM learning_records WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM learning_records WHERE id = ?",
			expected: "SELECT * FROM learning_records WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM learning_records WHERE timestamp_ms >= ? AND timestamp_ms <= ?",
			expected: "SELECT * FROM learning_records WHERE timestamp_ms >= $1 AND timestamp_ms <= $2",
		},
		{
			name:     "PostgreSQL counter upsert",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO counters (namespace, counter_key, counter_value) VALUES (?, ?, ?)",
			expected: "INSERT INTO counters (namespace, counter_key, counter_value) VALUES ($1, $2, $3)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "DELETE FROM learning_records WHERE timestamp_ms < ?",
			expected: "DELETE FROM learning_records WHERE timestamp_ms < ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.RewriteQuery(tt.query))
		})
	}
}

func TestDialectDSN(t *testing.T) {
	assert.Equal(t, "hsk.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000",
		NewSQLiteDialect().DSN(DialectConfig{Path: "hsk.db"}))
	assert.Equal(t, "hsk.db?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		NewPureSQLiteDialect().DSN(DialectConfig{Path: "hsk.db"}))
	assert.Equal(t, "postgres://u:p@localhost/hsk?sslmode=disable",
		NewPostgresDialect().DSN(DialectConfig{URL: "postgres://u:p@localhost/hsk?sslmode=disable"}))

	t.Run("MySQL native DSN passes through", func(t *testing.T) {
		dsn := "hsk:secret@tcp(127.0.0.1:3306)/hsk"
		assert.Equal(t, dsn, NewMySQLDialect().DSN(DialectConfig{URL: dsn}))
	})

	t.Run("MySQL URL is converted", func(t *testing.T) {
		dsn := NewMySQLDialect().DSN(DialectConfig{URL: "mysql://hsk:secret@db:3306/hsk"})
		assert.Contains(t, dsn, "hsk:secret@tcp(db:3306)/hsk")
	})
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		driver  string
		wantErr bool
	}{
		{dbType: "", driver: "sqlite3"},
		{dbType: "sqlite", driver: "sqlite3"},
		{dbType: "SQLite3", driver: "sqlite3"},
		{dbType: "sqlite-pure", driver: "sqlite"},
		{dbType: "postgresql", driver: "postgres"},
		{dbType: "mysql", driver: "mysql"},
		{dbType: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, _, err := DialectFor(tt.dbType, "hsk.db", "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, dialect.DriverName())
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx_a ON a(id);
-- trailing comment
`
	stmts := splitStatements(content)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE INDEX idx_a ON a(id);", stmts[1])
}

func TestConfigureConnectionPoolSize(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		override int
		want     int
	}{
		{name: "SQLite default", dialect: NewSQLiteDialect(), want: sqlitePoolSize},
		{name: "SQLite override", dialect: NewSQLiteDialect(), override: 1, want: 1},
		{name: "PostgreSQL default", dialect: NewPostgresDialect(), want: serverPoolSize},
		{name: "MySQL override", dialect: NewMySQLDialect(), override: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "pool.db"))
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, tt.dialect.ConfigureConnection(db, DialectConfig{MaxOpenConns: tt.override}))
			assert.Equal(t, tt.want, db.Stats().MaxOpenConnections)
		})
	}
}
