package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/codeboost/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Database = config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "codeboost.db"),
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		BusyTimeout:     5000,
		ForeignKeys:     true,
		ConnMaxLife:     time.Minute,
	}
	return cfg
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn := buildSQLiteDSN(&config.DatabaseConfig{
		Path:            "/tmp/x.db",
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		BusyTimeout:     100,
		CacheSize:       -2000,
		ForeignKeys:     true,
	})
	assert.Equal(t, "/tmp/x.db?_busy_timeout=100&_cache_size=-2000&_foreign_keys=true&_journal_mode=WAL&_synchronous=NORMAL", dsn)

	assert.Equal(t, ":memory:", buildSQLiteDSN(&config.DatabaseConfig{Path: ":memory:"}))
}

func TestNotInitialized(t *testing.T) {
	_, err := DB()
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = RunMigrations()
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.NoError(t, CloseDB())
}

func TestMigrations(t *testing.T) {
	require.NoError(t, InitDB(testConfig(t)))
	t.Cleanup(func() { _ = CloseDB() })

	status, err := MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(0), status.Version)
	assert.Equal(t, 2, status.Pending)

	applied, err := RunMigrations()
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = RunMigrations()
	require.NoError(t, err)
	assert.Zero(t, applied)

	status, err = MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.False(t, status.Dirty)
	assert.Zero(t, status.Pending)

	conn, err := DB()
	require.NoError(t, err)
	for _, table := range []string{"analyses", "suggestions", "test_runs", "test_cases", "build_attempts"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}

	require.NoError(t, RevertMigrations(1))
	status, err = MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.Equal(t, 1, status.Pending)

	assert.Error(t, RevertMigrations(0))
}

func TestWithTransaction(t *testing.T) {
	require.NoError(t, InitDB(testConfig(t)))
	t.Cleanup(func() { _ = CloseDB() })
	_, err := RunMigrations()
	require.NoError(t, err)

	ctx := context.Background()
	insert := func(tx *sql.Tx, id string) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO analyses (id, file_path, content_hash, model) VALUES (?, ?, ?, ?)",
			id, "/w/a.py", "hash", "gemini")
		return err
	}

	require.NoError(t, WithTransaction(ctx, func(tx *sql.Tx) error { return insert(tx, "ana-1") }))

	boom := errors.New("boom")
	err = WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insert(tx, "ana-2"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	conn, err := DB()
	require.NoError(t, err)
	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count))
	assert.Equal(t, 1, count)
}
