package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "hsk_test.db"))
	require.NoError(t, err, "failed to initialize database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PingContext(ctx))

	for _, table := range []string{"learning_records", "test_attempts", "counters", "migrations"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s not found", table)
	}

	applied, err := db.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_learning_records.sql", "002_test_attempts.sql", "003_counters.sql"}, applied)

	// running again is a no-op
	require.NoError(t, db.RunMigrations(ctx))
	again, err := db.AppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, applied, again)
}

func TestExecReturningID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO learning_records (timestamp_ms, hsk_level, game_type, character_text, is_correct)
		VALUES (?, ?, ?, ?, ?)`

	first, err := db.ExecReturningID(ctx, insert, 1000, 1, "quiz", "你", true)
	require.NoError(t, err)
	second, err := db.ExecReturningID(ctx, insert, 2000, 1, "quiz", "好", false)
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	upsert := db.Dialect.UpsertCounterQuery()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, upsert, "user_progress", "total_xp", "10")
		return err
	})
	require.NoError(t, err)

	var value string
	err = db.QueryRowContext(ctx,
		"SELECT counter_value FROM counters WHERE namespace = ? AND counter_key = ?",
		"user_progress", "total_xp").Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, "10", value)

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, upsert, "user_progress", "total_xp", "99"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = db.QueryRowContext(ctx,
		"SELECT counter_value FROM counters WHERE namespace = ? AND counter_key = ?",
		"user_progress", "total_xp").Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, "10", value, "rolled back write must not be visible")
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO learning_records (timestamp_ms, hsk_level, game_type, character_text, is_correct)
		VALUES (?, ?, ?, ?, ?)`, 1000, 2, "matching", "学生", true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var character string
			err := db.QueryRowContext(ctx,
				"SELECT character_text FROM learning_records WHERE game_type = ?", "matching").Scan(&character)
			assert.NoError(t, err)
			assert.Equal(t, "学生", character)
		}()
	}
	wg.Wait()
}
