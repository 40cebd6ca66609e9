package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		API
		Database
		UI
		Tokens
		Auth
		Tasks
		CatalogRefresh
		Covers
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	// API describes the remote book-review backend. Both URLs are fixed at startup.
	API struct {
		BaseURL    string // REST base, e.g. http://localhost:5000/api
		BackendURL string // asset base, e.g. http://localhost:5000
		Env        string
		Timeout    time.Duration
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string // empty = use embedded templates
		StaticPath    string
	}
	Tokens struct {
		EncryptionKey string // base64 32-byte key or any passphrase
		KeyFilePath   string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration for the login and register forms
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	CatalogRefresh struct {
		Enabled  bool
		Schedule string // Cron format: "*/30 * * * *" = every 30 minutes
	}
	Covers struct {
		Enabled bool
		Dir     string // empty = "covers" next to the database
	}
	Metrics struct {
		Enabled bool
	}
)

// IsProduction reports whether NEXT_PUBLIC_ENV is "production".
func (a API) IsProduction() bool {
	return a.Env == EnvProduction
}

// IsDevelopment reports whether NEXT_PUBLIC_ENV is "development".
func (a API) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}

// URL returns the full backend URL for an endpoint, with or without a leading slash.
func (a API) URL(endpoint string) string {
	return strings.TrimRight(a.BaseURL, "/") + withLeadingSlash(endpoint)
}

// AssetURL returns the URL of a static asset served by the backend.
// Absolute URLs are returned unchanged.
func (a API) AssetURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(a.BackendURL, "/") + withLeadingSlash(path)
}

func withLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}

// loadDotEnv loads variables from a .env file in the working directory, if any.
// Variables already present in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: failed to load .env file: %v", err)
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("next_public_api_url", DefaultAPIURL)
	v.SetDefault("next_public_backend_url", DefaultBackendURL)
	v.SetDefault("next_public_env", EnvDevelopment)
	v.SetDefault("api_timeout", "15s")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "./static")
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_key_file", "")

	// Web session / CSRF defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_secure_cookies", false)    // served on localhost by default
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("catalog_refresh_enabled", false)
	v.SetDefault("catalog_refresh_schedule", "*/30 * * * *")
	v.SetDefault("covers_enabled", true)
	v.SetDefault("covers_dir", "")
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		API: API{
			BaseURL:    v.GetString("NEXT_PUBLIC_API_URL"),
			BackendURL: v.GetString("NEXT_PUBLIC_BACKEND_URL"),
			Env:        v.GetString("NEXT_PUBLIC_ENV"),
			Timeout:    v.GetDuration("API_TIMEOUT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Tokens: Tokens{
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFilePath:   v.GetString("TOKEN_KEY_FILE"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		CatalogRefresh: CatalogRefresh{
			Enabled:  v.GetBool("CATALOG_REFRESH_ENABLED"),
			Schedule: v.GetString("CATALOG_REFRESH_SCHEDULE"),
		},
		Covers: Covers{
			Enabled: v.GetBool("COVERS_ENABLED"),
			Dir:     v.GetString("COVERS_DIR"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
