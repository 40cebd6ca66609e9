package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_URL", "")
	t.Setenv("NEXT_PUBLIC_BACKEND_URL", "")

	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DefaultAPIURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultBackendURL, cfg.API.BackendURL)
	assert.Equal(t, EnvDevelopment, cfg.API.Env)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.False(t, cfg.CatalogRefresh.Enabled)
	assert.Equal(t, "*/30 * * * *", cfg.CatalogRefresh.Schedule)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_URL", "https://books.example.com/api")
	t.Setenv("NEXT_PUBLIC_ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("CATALOG_REFRESH_ENABLED", "true")

	cfg := NewConfig()

	assert.Equal(t, "https://books.example.com/api", cfg.API.BaseURL)
	assert.True(t, cfg.API.IsProduction())
	assert.False(t, cfg.API.IsDevelopment())
	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.True(t, cfg.CatalogRefresh.Enabled)
}

func TestAPI_URL(t *testing.T) {
	api := API{BaseURL: "http://localhost:5000/api/"}

	assert.Equal(t, "http://localhost:5000/api/books", api.URL("books"))
	assert.Equal(t, "http://localhost:5000/api/books/1", api.URL("/books/1"))
}

func TestAPI_AssetURL(t *testing.T) {
	api := API{BackendURL: "http://localhost:5000"}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative without slash", "uploads/dune.jpg", "http://localhost:5000/uploads/dune.jpg"},
		{"relative with slash", "/uploads/dune.jpg", "http://localhost:5000/uploads/dune.jpg"},
		{"absolute url untouched", "https://cdn.example.com/dune.jpg", "https://cdn.example.com/dune.jpg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, api.AssetURL(tt.path))
		})
	}
}
