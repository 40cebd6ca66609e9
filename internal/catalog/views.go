package catalog

import (
	"sort"
	"strings"

	"github.com/mrlokans/bookclub/internal/entities"
)

// Sort keys accepted by SortBooks.
const (
	SortTitle   = "title"
	SortAuthor  = "author"
	SortRating  = "rating"
	SortReviews = "reviews"
	SortYear    = "year"
)

// SortKeys lists the sort options in display order.
var SortKeys = []string{SortTitle, SortAuthor, SortRating, SortReviews, SortYear}

// RatingOptions are the minimum-rating choices offered on the books page.
var RatingOptions = []float64{0, 3, 4, 4.5}

// Query combines the books page controls. Zero values apply no constraint.
type Query struct {
	Search    string
	Genre     string
	MinRating float64
	Sort      string
}

// Browse applies search, then genre and rating, then sorting.
func (s *Store) Browse(q Query) []entities.Book {
	books := s.where(func(b entities.Book) bool {
		return (q.Search == "" || b.MatchesQuery(q.Search)) &&
			matchesGenre(b, q.Genre) &&
			matchesRating(b, q.MinRating)
	})
	SortBooks(books, q.Sort)
	return books
}

// Genres returns the distinct genres in the catalog, sorted.
func (s *Store) Genres() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.books))
	genres := []string{}
	for _, b := range s.books {
		if b.Genre == "" {
			continue
		}
		if _, ok := seen[b.Genre]; ok {
			continue
		}
		seen[b.Genre] = struct{}{}
		genres = append(genres, b.Genre)
	}
	sort.Strings(genres)
	return genres
}

// SortBooks orders books in place. Title and author sort ascending; rating,
// review count and year sort descending. Unknown keys leave the order alone.
func SortBooks(books []entities.Book, key string) {
	var less func(a, b entities.Book) bool
	switch key {
	case SortTitle:
		less = func(a, b entities.Book) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortAuthor:
		less = func(a, b entities.Book) bool { return strings.ToLower(a.Author) < strings.ToLower(b.Author) }
	case SortRating:
		less = func(a, b entities.Book) bool { return a.AverageRating > b.AverageRating }
	case SortReviews:
		less = func(a, b entities.Book) bool { return a.TotalReviews > b.TotalReviews }
	case SortYear:
		less = func(a, b entities.Book) bool { return a.PublishYear > b.PublishYear }
	default:
		return
	}
	sort.SliceStable(books, func(i, j int) bool { return less(books[i], books[j]) })
}

// UserReview is a review together with the book it belongs to.
type UserReview struct {
	entities.Review
	BookID    string
	BookTitle string
	BookCover string
}

// UserReviews collects every review written by userID across the catalog,
// in catalog order.
func (s *Store) UserReviews(userID string) []UserReview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []UserReview{}
	if userID == "" {
		return out
	}
	for _, b := range s.books {
		for _, r := range b.Reviews {
			if r.UserID != userID {
				continue
			}
			out = append(out, UserReview{
				Review:    r,
				BookID:    b.ID,
				BookTitle: b.Title,
				BookCover: b.CoverImage,
			})
		}
	}
	return out
}

// AverageRating is the mean rating of reviews, or 0 for none.
func AverageRating(reviews []UserReview) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews))
}
