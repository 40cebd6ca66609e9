package auth

import (
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures login throttling. Zero fields take the defaults
// from DefaultRateLimitConfig.
type RateLimitConfig struct {
	MaxAttempts     int           // failures before lockout
	WindowDuration  time.Duration // failures older than this are forgotten
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the defaults also used by config.Auth.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter throttles the login and register forms. Failures are counted
// per client IP and email; once MaxAttempts failures fall inside one window
// the pair is locked out. The backend is never asked during a lockout.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	failures map[string]*failureWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type failureWindow struct {
	count       int
	opened      time.Time
	lockedUntil time.Time
}

func (w *failureWindow) locked(now time.Time) bool {
	return now.Before(w.lockedUntil)
}

func (w *failureWindow) expired(now time.Time, window time.Duration) bool {
	return now.Sub(w.opened) > window && !w.locked(now)
}

// NewRateLimiter starts a limiter with a background sweep of stale entries.
// Call Stop when done.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = defaults.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaults.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		cfg:      cfg,
		now:      time.Now,
		failures: make(map[string]*failureWindow),
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// key folds the email so "Ada@Example.com " and "ada@example.com" share a
// counter.
func key(ip, email string) string {
	return ip + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Allow reports whether a form submission may reach the backend. When it
// may not, retryAfter is how long the lockout still lasts.
func (rl *RateLimiter) Allow(ip, email string) (allowed bool, retryAfter time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.failures[key(ip, email)]
	switch {
	case !ok:
		return true, 0
	case w.locked(now):
		return false, w.lockedUntil.Sub(now)
	case now.Sub(w.opened) > rl.cfg.WindowDuration:
		return true, 0
	case w.count < rl.cfg.MaxAttempts:
		return true, 0
	default:
		return false, rl.cfg.LockoutDuration
	}
}

// Remaining is the number of failures left before a lockout.
func (rl *RateLimiter) Remaining(ip, email string) int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.failures[key(ip, email)]
	if !ok || now.Sub(w.opened) > rl.cfg.WindowDuration {
		return rl.cfg.MaxAttempts
	}
	if w.locked(now) || w.count >= rl.cfg.MaxAttempts {
		return 0
	}
	return rl.cfg.MaxAttempts - w.count
}

// RecordFailure counts a rejected login or registration. locked is true
// when this failure started a lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (locked bool, retryAfter time.Duration) {
	now := rl.now()
	k := key(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.failures[k]
	if !ok || now.Sub(w.opened) > rl.cfg.WindowDuration {
		w = &failureWindow{opened: now}
		rl.failures[k] = w
	}

	w.count++
	if w.count >= rl.cfg.MaxAttempts {
		w.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

// RecordSuccess forgets the failures of a pair that just signed in.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.failures, key(ip, email))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops windows that are both closed and unlocked.
func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, w := range rl.failures {
		if w.expired(now, rl.cfg.WindowDuration) {
			delete(rl.failures, k)
		}
	}
}
