// Package auth holds the browser-facing protection around the UI: CSRF
// tokens, flash messages kept in scs sessions, login gating, rate limiting
// of credential forms and security headers.
//
// The backend auth token itself lives in the session store, not in the
// browser. Browser sessions only carry flashes and the post-login return
// path.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex or passphrase> # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Browser session duration
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failed attempts before lockout
//
// # Usage
//
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(auth.CSRFMiddleware(secret, cfg.Auth.SecureCookies), sm.SessionLoadSave())
//	router.Use(auth.CurrentUser(sessionStore))
//	router.GET("/profile", auth.RequireLogin(sm), handler)
package auth
