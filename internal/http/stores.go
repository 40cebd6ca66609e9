package http

import (
	"context"
	"time"

	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/scheduler"
)

// Each controller depends on the narrowest interface it needs. The concrete
// stores are *session.Store, *catalog.Store, *covers.Cache, *bookapi.Client,
// *database.Database and *scheduler.CatalogRefreshScheduler.

// SessionReader is the read side of the session every page renders against.
type SessionReader interface {
	User() *entities.User
	IsAuthenticated() bool
	Loading() bool
}

// SessionStore adds the session operations the auth and profile forms call.
type SessionStore interface {
	SessionReader
	Login(ctx context.Context, email, password string) (*entities.User, error)
	Register(ctx context.Context, name, email, password string) (*entities.User, error)
	Logout()
	UpdateProfile(ctx context.Context, update entities.ProfileUpdate) (*entities.User, error)
	TokenExpiry() (time.Time, bool)
}

// CatalogReader provides the in-memory catalog views.
type CatalogReader interface {
	Books() []entities.Book
	FeaturedBooks() []entities.Book
	GetBookByID(id string) (entities.Book, bool)
	Browse(q catalog.Query) []entities.Book
	Genres() []string
	UserReviews(userID string) []catalog.UserReview
	Loading() bool
}

// CatalogStore adds the catalog operations that talk to the backend.
type CatalogStore interface {
	CatalogReader
	FetchBooks(ctx context.Context, filter entities.BookFilter)
	FetchBookByID(ctx context.Context, id string) (entities.Book, bool)
	AddReview(ctx context.Context, bookID string, input entities.ReviewInput) (entities.Book, error)
}

// CoverCache serves cover images from disk.
type CoverCache interface {
	GetCover(ctx context.Context, bookID, coverImage string) (string, error)
	URL(coverImage string) string
}

// BackendProbe runs the connectivity checks shown on the debug page.
type BackendProbe interface {
	BaseURL() string
	ServerTime(ctx context.Context) (*bookapi.DebugInfo, error)
	CountBooks(ctx context.Context) (int, error)
}

// Pinger checks the local database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RefreshStatus reports the background catalog refresher's state.
type RefreshStatus interface {
	IsRunning() bool
	NextRunTime() *time.Time
	LastRefresh() *scheduler.RefreshStatus
}
