package counters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hskmaster/internal/config"
	"hskmaster/internal/database"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	bolt, err := OpenBolt(filepath.Join(dir, "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	db, err := database.Initialize(filepath.Join(dir, "hsk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
		"sql":    NewSQLStore(db),
	}
}

func TestStores(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Load(ctx, "user_progress")
			require.NoError(t, err)
			assert.Empty(t, empty)

			values := Values{}
			values.SetInt("total_xp", 120)
			values.SetString("last_active_date", "2026-10-18")
			require.NoError(t, store.Save(ctx, "user_progress", values))

			premium := Values{}
			premium.SetBool("is_premium", true)
			require.NoError(t, store.Save(ctx, "purchases", premium))

			// partial save keeps the other keys
			update := Values{}
			update.SetInt("total_xp", 130)
			require.NoError(t, store.Save(ctx, "user_progress", update))

			loaded, err := store.Load(ctx, "user_progress")
			require.NoError(t, err)
			assert.Equal(t, 130, loaded.Int("total_xp", 0))
			assert.Equal(t, "2026-10-18", loaded.String("last_active_date", ""))
			assert.NotContains(t, loaded, "is_premium", "namespaces must not leak into each other")

			require.NoError(t, store.Clear(ctx, "user_progress"))
			require.NoError(t, store.Clear(ctx, "never_written"))

			cleared, err := store.Load(ctx, "user_progress")
			require.NoError(t, err)
			assert.Empty(t, cleared)

			purchases, err := store.Load(ctx, "purchases")
			require.NoError(t, err)
			assert.True(t, purchases.Bool("is_premium", false))
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "ns", Values{"a": "1"}))

	loaded, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	loaded["a"] = "changed"

	again, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, "1", again["a"])
}

func TestValuesAccessors(t *testing.T) {
	v := Values{"n": "42", "bad": "x", "flag": "true"}

	assert.Equal(t, 42, v.Int("n", 0))
	assert.Equal(t, 7, v.Int("bad", 7))
	assert.Equal(t, 7, v.Int("missing", 7))
	assert.True(t, v.Bool("flag", false))
	assert.False(t, v.Bool("bad", false))
	assert.Equal(t, "fallback", v.String("missing", "fallback"))
}

func TestOpen(t *testing.T) {
	store, err := Open(&config.Config{CounterBackend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(&config.Config{CounterBackend: "sql"}, nil)
	assert.Error(t, err)

	_, err = Open(&config.Config{CounterBackend: "redis"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}
