// Package session holds the process-wide authentication state: the auth
// token and the user profile it resolves to.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/entities"
)

// Fallback messages for failures the backend did not explain.
const (
	MsgLoginFailed         = "Login failed"
	MsgRegistrationFailed  = "Registration failed"
	MsgProfileUpdateFailed = "Profile update failed"
)

// Backend is the slice of the REST API the session needs.
// *bookapi.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*bookapi.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*bookapi.AuthResponse, error)
	Profile(ctx context.Context, token string) (*entities.User, error)
	UpdateProfile(ctx context.Context, token string, update entities.ProfileUpdate) (*entities.User, error)
}

// TokenStore persists the token across restarts.
// *tokenstore.Store satisfies it.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Store is safe for concurrent use. The user is non-nil only while the last
// profile resolution for the current token succeeded.
type Store struct {
	backend Backend
	tokens  TokenStore
	now     func() time.Time

	mu      sync.RWMutex
	token   string
	user    *entities.User
	loading bool
	// gen counts login, register and logout; a restore started under an
	// older gen must not touch the session.
	gen uint64

	initOnce sync.Once
	ready    chan struct{}
}

type Option func(*Store)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(backend Backend, tokens TokenStore, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		tokens:  tokens,
		now:     time.Now,
		loading: true,
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores a persisted session. It runs at most once; later calls
// return immediately. Loading flips to false when it finishes.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		defer s.finishLoading()

		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		token, err := s.tokens.Load()
		if err != nil {
			log.Printf("Session: failed to load stored token: %v", err)
			s.discardToken(gen)
			return
		}
		if token == "" {
			return
		}

		if exp, ok := tokenExpiry(token); ok && !exp.After(s.now()) {
			log.Printf("Session: stored token expired at %s, discarding", exp.Format(time.RFC3339))
			s.discardToken(gen)
			return
		}

		user, err := s.backend.Profile(ctx, token)
		if err != nil {
			log.Printf("Session: stored token rejected: %v", err)
			s.discardToken(gen)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			log.Printf("Session: session changed during restore, keeping it")
			return
		}
		s.token = token
		s.user = user
	})
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	close(s.ready)
}

// discardToken forgets the stored token unless a login, register or logout
// happened since gen was read.
func (s *Store) discardToken(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if err := s.tokens.Clear(); err != nil {
		log.Printf("Session: failed to clear stored token: %v", err)
	}
	s.token = ""
	s.user = nil
}

// Login authenticates and, on success, persists the token and sets the user.
// On failure the previous session is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) (*entities.User, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, bookapi.WithDefaultMessage(err, MsgLoginFailed)
	}
	return s.establish(resp)
}

func (s *Store) Register(ctx context.Context, name, email, password string) (*entities.User, error) {
	resp, err := s.backend.Register(ctx, name, email, password)
	if err != nil {
		return nil, bookapi.WithDefaultMessage(err, MsgRegistrationFailed)
	}
	return s.establish(resp)
}

func (s *Store) establish(resp *bookapi.AuthResponse) (*entities.User, error) {
	user := resp.User

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if err := s.tokens.Save(resp.Token); err != nil {
		// Session stays valid in memory for this process only.
		log.Printf("Session: failed to persist token: %v", err)
	}
	s.token = resp.Token
	s.user = &user

	return &user, nil
}

// Logout clears the user and the persisted token. It makes no network call
// and is idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.token = ""
	s.user = nil
	if err := s.tokens.Clear(); err != nil {
		log.Printf("Session: failed to clear stored token: %v", err)
	}
}

// UpdateProfile sends the set fields and replaces the user with the
// backend's answer.
func (s *Store) UpdateProfile(ctx context.Context, update entities.ProfileUpdate) (*entities.User, error) {
	token, ok := s.Token()
	if !ok {
		return nil, bookapi.ErrUnauthenticated
	}

	user, err := s.backend.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, bookapi.WithDefaultMessage(err, MsgProfileUpdateFailed)
	}

	s.mu.Lock()
	if s.token == token {
		s.user = user
	}
	s.mu.Unlock()

	return user, nil
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Loading is true until Initialize has finished.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Ready is closed once Initialize has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Token returns the current auth token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// TokenExpiry reports the exp claim of the current token when it is a JWT.
func (s *Store) TokenExpiry() (time.Time, bool) {
	token, ok := s.Token()
	if !ok {
		return time.Time{}, false
	}
	return tokenExpiry(token)
}

// tokenExpiry reads exp without verifying the signature; the backend is the
// only party that can verify it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
