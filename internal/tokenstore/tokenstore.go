// Package tokenstore persists the backend auth token across restarts,
// encrypted with AES-256-GCM in the local settings table.
package tokenstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mrlokans/bookclub/internal/crypto"
	"github.com/mrlokans/bookclub/internal/database"
	"github.com/mrlokans/bookclub/internal/entities"
)

const (
	// EnvEncryptionKey is the environment variable for the encryption key
	EnvEncryptionKey = "TOKEN_ENCRYPTION_KEY"

	// DefaultKeyFileName is the default name for the key file
	DefaultKeyFileName = ".bookclub-token-key"
)

// SettingsStore is the key/value persistence the token is written to.
// *database.Database satisfies it.
type SettingsStore interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Config holds configuration for the token store
type Config struct {
	// EncryptionKey is a base64-encoded 32-byte key or any passphrase.
	// If empty, will try to load from environment or key file
	EncryptionKey string

	// KeyFilePath is the path to the encryption key file.
	// If empty, defaults to ~/.bookclub-token-key
	KeyFilePath string
}

// Store keeps exactly one token under entities.SettingKeyAuthToken.
type Store struct {
	settings SettingsStore
	sealer   *crypto.Sealer
}

func New(settings SettingsStore, cfg Config) (*Store, error) {
	key, err := resolveEncryptionKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	sealer, err := crypto.NewSealerFromSecret(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	return &Store{settings: settings, sealer: sealer}, nil
}

// Load returns the persisted token, or "" when none is stored.
func (s *Store) Load() (string, error) {
	setting, err := s.settings.GetSetting(entities.SettingKeyAuthToken)
	if errors.Is(err, database.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token, err := s.sealer.Open(setting.Value)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}

func (s *Store) Save(token string) error {
	if token == "" {
		return s.Clear()
	}

	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}
	if err := s.settings.SetSetting(entities.SettingKeyAuthToken, sealed); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	if err := s.settings.DeleteSetting(entities.SettingKeyAuthToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// resolveEncryptionKey determines the encryption key from various sources
func resolveEncryptionKey(cfg Config) (string, error) {
	// Priority 1: Explicitly provided key
	if cfg.EncryptionKey != "" {
		return cfg.EncryptionKey, nil
	}

	// Priority 2: Environment variable
	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return envKey, nil
	}

	// Priority 3: Key file, generated on first use
	keyFilePath := KeyFilePath(cfg.KeyFilePath)
	if data, err := os.ReadFile(keyFilePath); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return "", fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}

	log.Printf("Generated new token encryption key at %s", keyFilePath)
	return newKey, nil
}

// KeyFilePath returns the path to the key file being used
func KeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}

// Memory is an unencrypted in-process token holder for tests and ephemeral runs.
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Clear() error {
	return m.Save("")
}
