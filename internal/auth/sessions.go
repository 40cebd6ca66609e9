package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookclub/internal/config"
)

// Session data keys
const (
	SessionKeyFlashes  = "flashes"
	SessionKeyReturnTo = "return_to"
)

// Flash kinds rendered by the layout template.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register([]Flash{})
}

// SessionManager wraps scs.SessionManager with the browser-side state the UI
// needs between redirects: flash notifications and the page to return to
// after logging in. The backend auth token is not stored here.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "bookclub_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// PutFlash queues a notification for the next page render.
func (sm *SessionManager) PutFlash(r *http.Request, kind, message string) {
	if message == "" {
		return
	}
	flashes, _ := sm.Get(r.Context(), SessionKeyFlashes).([]Flash)
	flashes = append(flashes, Flash{Kind: kind, Message: message})
	sm.Put(r.Context(), SessionKeyFlashes, flashes)
}

// PopFlashes returns and clears all queued notifications.
func (sm *SessionManager) PopFlashes(r *http.Request) []Flash {
	flashes, _ := sm.Pop(r.Context(), SessionKeyFlashes).([]Flash)
	return flashes
}

// SetReturnTo remembers a local path to redirect to after login.
// Anything that is not a site-relative path is ignored.
func (sm *SessionManager) SetReturnTo(r *http.Request, path string) {
	if !isLocalPath(path) {
		return
	}
	sm.Put(r.Context(), SessionKeyReturnTo, path)
}

// PopReturnTo returns the remembered path, or fallback when none is set.
func (sm *SessionManager) PopReturnTo(r *http.Request, fallback string) string {
	path := sm.PopString(r.Context(), SessionKeyReturnTo)
	if !isLocalPath(path) {
		return fallback
	}
	return path
}
