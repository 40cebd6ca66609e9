// Package catalog holds the process-wide, in-memory list of books fetched
// from the backend, plus the read-only projections the pages use.
package catalog

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/metrics"
)

// MsgAddReviewFailed is used when the backend rejects a review without saying why.
const MsgAddReviewFailed = "Failed to add review"

// GenreAll is the UI's "no genre constraint" value.
const GenreAll = "all"

// Backend is the slice of the REST API the catalog needs.
// *bookapi.Client satisfies it.
type Backend interface {
	ListBooks(ctx context.Context, filter entities.BookFilter) ([]entities.Book, error)
	GetBook(ctx context.Context, id string) (*entities.Book, error)
	AddReview(ctx context.Context, token, bookID string, rating int, comment string) (*entities.Book, error)
}

// Credentials supplies the current auth token. *session.Store satisfies it.
type Credentials interface {
	Token() (string, bool)
}

// ChangeHook observes the catalog after every replacement or upsert.
type ChangeHook func(books []entities.Book)

// ValidationError names the review field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Store is safe for concurrent use. Network calls happen outside the lock
// and the last response to resolve wins.
type Store struct {
	backend     Backend
	credentials Credentials
	validate    *validator.Validate
	metrics     *metrics.Collector
	hooks       []ChangeHook

	mu       sync.RWMutex
	books    []entities.Book
	inFlight int
}

type Option func(*Store)

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Store) { s.metrics = m }
}

// WithChangeHook registers a hook; it runs synchronously after the lock is released.
func WithChangeHook(hook ChangeHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, hook) }
}

func New(backend Backend, credentials Credentials, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		credentials: credentials,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		books:       []entities.Book{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchBooks replaces the whole catalog with the backend's answer for
// filter. Any failure empties the catalog; no error is returned.
func (s *Store) FetchBooks(ctx context.Context, filter entities.BookFilter) {
	s.beginLoading()
	defer s.endLoading()

	books, err := s.backend.ListBooks(ctx, filter)
	if err != nil {
		log.Printf("Catalog: error fetching books: %v", err)
		books = []entities.Book{}
	}
	s.metrics.CatalogFetch(err == nil)

	s.mu.Lock()
	s.books = books
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.changed(snapshot)
}

// FetchBookByID fetches one book and upserts it: an entry with the
// requested id is replaced, otherwise the book is appended. On failure the
// catalog is unchanged and ok is false.
func (s *Store) FetchBookByID(ctx context.Context, id string) (entities.Book, bool) {
	s.beginLoading()
	defer s.endLoading()

	book, err := s.backend.GetBook(ctx, id)
	if err != nil {
		log.Printf("Catalog: error fetching book %s: %v", id, err)
		return entities.Book{}, false
	}
	// A 2xx with a null or empty body carries no book.
	if book == nil || book.ID == "" {
		log.Printf("Catalog: backend returned no book for %s", id)
		return entities.Book{}, false
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.books[i] = *book
	} else {
		s.books = append(s.books, *book)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.changed(snapshot)
	return book.Clone(), true
}

// GetBookByID looks the book up in memory only.
func (s *Store) GetBookByID(id string) (entities.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.books[i].Clone(), true
	}
	return entities.Book{}, false
}

// SearchBooks returns books whose title or author contains query, ignoring
// case. An empty query returns the whole catalog.
func (s *Store) SearchBooks(query string) []entities.Book {
	if query == "" {
		return s.Books()
	}
	return s.where(func(b entities.Book) bool { return b.MatchesQuery(query) })
}

// FilterBooks keeps books of genre (empty or "all" means any genre) with an
// average rating of at least minRating (0 means any rating).
func (s *Store) FilterBooks(genre string, minRating float64) []entities.Book {
	return s.where(func(b entities.Book) bool {
		return matchesGenre(b, genre) && matchesRating(b, minRating)
	})
}

// FeaturedBooks projects the featured books in catalog order.
func (s *Store) FeaturedBooks() []entities.Book {
	return s.where(entities.Book.IsFeatured)
}

// AddReview submits a review for bookID as the current user. On success
// the book's entry is replaced by the backend's updated record, whose
// aggregates are taken as-is.
func (s *Store) AddReview(ctx context.Context, bookID string, input entities.ReviewInput) (entities.Book, error) {
	token, ok := s.credentials.Token()
	if !ok {
		return entities.Book{}, bookapi.ErrUnauthenticated
	}

	input.Comment = strings.TrimSpace(input.Comment)
	if err := s.validateReview(input); err != nil {
		return entities.Book{}, err
	}

	book, err := s.backend.AddReview(ctx, token, bookID, input.Rating, input.Comment)
	if err != nil {
		return entities.Book{}, bookapi.WithDefaultMessage(err, MsgAddReviewFailed)
	}

	s.mu.Lock()
	replaced := false
	if i := s.indexLocked(bookID); i >= 0 {
		s.books[i] = *book
		replaced = true
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if replaced {
		s.changed(snapshot)
	}
	return book.Clone(), nil
}

func (s *Store) validateReview(input entities.ReviewInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	switch fieldErrs[0].Field() {
	case "Rating":
		return &ValidationError{Field: "rating", Message: "Please select a rating before submitting."}
	case "Comment":
		return &ValidationError{Field: "comment", Message: "Please write a comment before submitting."}
	default:
		return &ValidationError{Field: strings.ToLower(fieldErrs[0].Field()), Message: fieldErrs[0].Error()}
	}
}

// Books returns a copy of the catalog in backend arrival order.
func (s *Store) Books() []entities.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Loading is true while any fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

func (s *Store) beginLoading() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *Store) endLoading() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *Store) where(keep func(entities.Book) bool) []entities.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []entities.Book{}
	for _, b := range s.books {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i := range s.books {
		if s.books[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []entities.Book {
	out := make([]entities.Book, len(s.books))
	for i, b := range s.books {
		out[i] = b.Clone()
	}
	return out
}

func (s *Store) changed(snapshot []entities.Book) {
	s.metrics.SetCatalogSize(len(snapshot))
	for _, hook := range s.hooks {
		hook(snapshot)
	}
}

func matchesGenre(b entities.Book, genre string) bool {
	return genre == "" || genre == GenreAll || b.Genre == genre
}

func matchesRating(b entities.Book, minRating float64) bool {
	return minRating == 0 || b.AverageRating >= minRating
}
