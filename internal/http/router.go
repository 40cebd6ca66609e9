package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.RequestID())
	router.Use(cfg.Metrics.GinMiddleware())

	// Apply security headers to all responses; covers may load from the backend
	router.Use(auth.SecurityHeadersMiddleware(cfg.API.BackendURL))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Snapshot the signed-in user once per request
	router.Use(auth.CurrentUser(cfg.Session))

	tmpl, err := loadTemplates(cfg.TemplatesPath, cfg.API, cfg.CoverCache != nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	pages := &pageRenderer{
		session:  cfg.Session,
		catalog:  cfg.Catalog,
		sessions: cfg.SessionManager,
		api:      cfg.API,
	}

	health := NewHealthController(cfg.Database, cfg.Session, cfg.Catalog, cfg.Version)
	ui := NewUIController(pages, cfg.Catalog)
	reviews := NewReviewsController(pages, cfg.Catalog)
	authForms := NewAuthController(pages, cfg.Session, cfg.RateLimiter)
	profile := NewProfileController(pages, cfg.Session, cfg.Catalog)
	contact := NewContactController(pages)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Catalog pages
	router.GET("/", ui.HomePage)
	router.GET("/about", ui.AboutPage)
	router.GET("/contact", contact.ContactPage)
	router.POST("/contact", contact.SendMessage)
	router.GET("/books", ui.BooksPage)
	router.POST("/books/refresh", ui.RefreshBooks)
	router.GET("/books/:id", ui.BookPage)
	router.POST("/books/:id/reviews", reviews.AddReview)

	if cfg.CoverCache != nil {
		covers := NewCoversController(cfg.CoverCache, cfg.Catalog)
		router.GET("/books/:id/cover", covers.GetCover)
	}

	// Auth forms
	guest := auth.RedirectIfAuthenticated("/")
	router.GET("/login", guest, authForms.LoginPage)
	router.POST("/login", authForms.Login)
	router.GET("/register", guest, authForms.RegisterPage)
	router.POST("/register", authForms.Register)
	router.POST("/logout", authForms.Logout)

	// Profile routes
	requireLogin := auth.RequireLogin(cfg.SessionManager)
	router.GET("/profile", requireLogin, profile.ProfilePage)
	router.POST("/profile", requireLogin, profile.UpdateProfile)

	if cfg.Backend != nil {
		debug := NewDebugController(pages, cfg.Backend, cfg.Catalog, cfg.Refresher)
		router.GET("/debug", debug.DebugPage)
	}

	router.NoRoute(func(c *gin.Context) {
		pages.notFound(c, "Page")
	})

	return router, nil
}
