package http

import (
	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core stores
	Session SessionStore
	Catalog CatalogStore

	// Backend connectivity probe for the debug page
	Backend BackendProbe

	// Local database health
	Database Pinger

	// Optional collaborators; nil disables the feature
	CoverCache     CoverCache
	Refresher      RefreshStatus
	Metrics        *metrics.Collector
	SessionManager *auth.SessionManager
	RateLimiter    *auth.RateLimiter

	// CSRF key; empty disables CSRF protection (tests)
	CSRFSecret    []byte
	SecureCookies bool

	// Asset URL resolution for cover images
	API config.API

	// UI paths; an empty TemplatesPath uses the embedded templates
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}
