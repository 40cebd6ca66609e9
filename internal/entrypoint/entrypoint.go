package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/covers"
	"github.com/mrlokans/bookclub/internal/crypto"
	http_controllers "github.com/mrlokans/bookclub/internal/http"
	"github.com/mrlokans/bookclub/internal/metrics"
	"github.com/mrlokans/bookclub/internal/scheduler"
	"github.com/mrlokans/bookclub/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill is SIGTERM; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookclub v%s", version)
	log.Printf("Backend API: %s (env: %s)", cfg.API.BaseURL, cfg.API.Env)

	if cfg.API.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	// Cover cache, filled in the background by the task queue
	var coverCache *covers.Cache
	if cfg.Covers.Enabled {
		dir := cfg.Covers.Dir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(cfg.Database.Path), "covers")
		}
		var err error
		coverCache, err = covers.NewCache(dir, cfg.API.AssetURL)
		if err != nil {
			log.Printf("WARNING: Failed to initialize cover cache: %v", err)
			coverCache = nil
		} else {
			log.Printf("Cover cache initialized at %s", coverCache.CacheDir())
		}
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var catalogOpts []catalog.Option
	if cfg.Tasks.Enabled {
		var err error
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, collector)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		if coverCache != nil {
			taskClient.Register(tasks.NewWarmCoverQueue(coverCache))
			warmer := tasks.NewCoverWarmer(taskClient, coverCache)
			catalogOpts = append(catalogOpts, catalog.WithChangeHook(warmer.OnCatalogChange))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	stores, err := OpenStores(cfg, collector, catalogOpts...)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Restore the session and load the catalog without blocking startup;
	// pages show loading state until both finish.
	go stores.Restore(context.Background())

	var refresher *scheduler.CatalogRefreshScheduler
	var schedulerCancel context.CancelFunc
	if cfg.CatalogRefresh.Enabled {
		refresher = scheduler.NewCatalogRefreshScheduler(stores.Catalog, cfg.CatalogRefresh.Schedule)
		var schedCtx context.Context
		schedCtx, schedulerCancel = context.WithCancel(context.Background())
		if err := refresher.Start(schedCtx); err != nil {
			log.Printf("WARNING: Catalog refresh scheduler not started: %v", err)
			schedulerCancel()
			refresher = nil
		}
	}

	sqlDB, err := stores.DB.SQL()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret, err := resolveCSRFSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to prepare CSRF secret: %v", err)
	}

	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})

	routerCfg := http_controllers.RouterConfig{
		Session:        stores.Session,
		Catalog:        stores.Catalog,
		Backend:        stores.Client,
		Database:       stores.DB,
		Metrics:        collector,
		SessionManager: sessionManager,
		RateLimiter:    rateLimiter,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		API:            cfg.API,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     staticPath(cfg.UI.StaticPath),
		Version:        version,
	}
	// Interface fields stay nil unless the component exists
	if coverCache != nil {
		routerCfg.CoverCache = coverCache
	}
	if refresher != nil {
		routerCfg.Refresher = refresher
	}

	router, err := http_controllers.NewRouter(routerCfg)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	onShutdown := func(ctx context.Context) {
		if refresher != nil {
			refresher.Stop()
			schedulerCancel()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		rateLimiter.Stop()
	}

	Serve(router, cfg, onShutdown)
}

// resolveCSRFSecret derives the 32-byte CSRF key from AUTH_SESSION_SECRET,
// or generates one for this process when the variable is unset.
func resolveCSRFSecret(secret string) ([]byte, error) {
	if secret == "" {
		generated, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		secret = generated
	}
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) == crypto.KeySize {
		return raw, nil
	}
	return crypto.DeriveKey([]byte(secret), "csrf")
}

// staticPath drops a configured static directory that does not exist.
func staticPath(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Printf("Static directory %s not found, serving without /static", dir)
		return ""
	}
	return dir
}
