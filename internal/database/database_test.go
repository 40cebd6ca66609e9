package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a fresh test database in a temp dir.
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	db := setupTestDB(t)

	t.Run("missing key", func(t *testing.T) {
		_, err := db.GetSetting("auth.token")
		assert.ErrorIs(t, err, ErrSettingNotFound)
	})

	t.Run("set creates then updates", func(t *testing.T) {
		require.NoError(t, db.SetSetting("auth.token", "first"))
		require.NoError(t, db.SetSetting("auth.token", "second"))

		setting, err := db.GetSetting("auth.token")
		require.NoError(t, err)
		assert.Equal(t, "second", setting.Value)

		var count int64
		db.DB.Table("settings").Where("key = ?", "auth.token").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, db.DeleteSetting("auth.token"))
		_, err := db.GetSetting("auth.token")
		assert.ErrorIs(t, err, ErrSettingNotFound)
	})

	t.Run("delete missing key is not an error", func(t *testing.T) {
		assert.NoError(t, db.DeleteSetting("nope"))
	})
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, db.Ping(context.Background()))

	sqlDB, err := db.SQL()
	require.NoError(t, err)
	assert.NotNil(t, sqlDB)
}

func TestPing_AfterClose(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Ping(context.Background()))
}
