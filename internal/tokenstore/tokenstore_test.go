package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrlokans/bookclub/internal/crypto"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, *database.Database) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	store, err := New(db, Config{EncryptionKey: key})
	require.NoError(t, err)
	return store, db
}

func TestStore_SaveLoadClear(t *testing.T) {
	store, db := setupTestStore(t)

	t.Run("empty when nothing stored", func(t *testing.T) {
		token, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("round trip is encrypted at rest", func(t *testing.T) {
		require.NoError(t, store.Save("jwt-abc"))

		setting, err := db.GetSetting(entities.SettingKeyAuthToken)
		require.NoError(t, err)
		assert.NotEqual(t, "jwt-abc", setting.Value)

		token, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "jwt-abc", token)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save("jwt-def"))

		token, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "jwt-def", token)
	})

	t.Run("clear removes token", func(t *testing.T) {
		require.NoError(t, store.Clear())

		token, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("saving empty token clears", func(t *testing.T) {
		require.NoError(t, store.Save("jwt"))
		require.NoError(t, store.Save(""))

		_, err := db.GetSetting(entities.SettingKeyAuthToken)
		assert.ErrorIs(t, err, database.ErrSettingNotFound)
	})
}

func TestStore_WrongKey(t *testing.T) {
	store, db := setupTestStore(t)
	require.NoError(t, store.Save("jwt-abc"))

	other, err := New(db, Config{EncryptionKey: "a different passphrase"})
	require.NoError(t, err)

	_, err = other.Load()
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestResolveEncryptionKey(t *testing.T) {
	t.Run("explicit key wins", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "from-env")
		key, err := resolveEncryptionKey(Config{EncryptionKey: "explicit"})
		require.NoError(t, err)
		assert.Equal(t, "explicit", key)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "from-env")
		key, err := resolveEncryptionKey(Config{})
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("generates and reuses key file", func(t *testing.T) {
		t.Setenv(EnvEncryptionKey, "")
		keyPath := filepath.Join(t.TempDir(), "key")

		first, err := resolveEncryptionKey(Config{KeyFilePath: keyPath})
		require.NoError(t, err)
		assert.NotEmpty(t, first)

		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		second, err := resolveEncryptionKey(Config{KeyFilePath: keyPath})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestKeyFilePath(t *testing.T) {
	assert.Equal(t, "/tmp/custom", KeyFilePath("/tmp/custom"))
	assert.Contains(t, KeyFilePath(""), DefaultKeyFileName)
}

func TestMemory(t *testing.T) {
	m := NewMemory("seed")

	token, _ := m.Load()
	assert.Equal(t, "seed", token)

	require.NoError(t, m.Save("next"))
	token, _ = m.Load()
	assert.Equal(t, "next", token)

	require.NoError(t, m.Clear())
	token, _ = m.Load()
	assert.Empty(t, token)
}
