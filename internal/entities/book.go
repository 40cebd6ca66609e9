package entities

import (
	"encoding/json"
	"strings"
)

// Book is a catalog entry as served by the backend. AverageRating and
// TotalReviews are server-computed aggregates.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Genre         string   `json:"genre"`
	Description   string   `json:"description"`
	CoverImage    string   `json:"coverImage"`
	AverageRating float64  `json:"averageRating"`
	TotalReviews  int      `json:"totalReviews"`
	Reviews       []Review `json:"reviews"`
	Featured      bool     `json:"featured,omitempty"`
	PublishYear   int      `json:"publishYear,omitempty"`
	Pages         int      `json:"pages,omitempty"`
}

// Review belongs to exactly one Book. Rating is an integer from 1 to 5.
type Review struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar,omitempty"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	Date       string `json:"date"`
}

// ReviewInput is what a reader submits; the backend assigns id and date.
type ReviewInput struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar,omitempty"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	Comment    string `json:"comment" validate:"required"`
}

// BookFilter holds the server-side query options for listing books.
// Zero values mean "no constraint".
type BookFilter struct {
	Genre     string
	MinRating float64
	Featured  bool
	Search    string
}

// UnmarshalJSON normalizes the identifier (id, falling back to _id) and
// guarantees a non-nil review list.
func (b *Book) UnmarshalJSON(data []byte) error {
	type bookAlias Book
	var wire struct {
		bookAlias
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*b = Book(wire.bookAlias)
	b.ID = NormalizeID(wire.bookAlias.ID, wire.AltID)
	if b.Reviews == nil {
		b.Reviews = []Review{}
	}
	return nil
}

// UnmarshalJSON normalizes the review identifier.
func (r *Review) UnmarshalJSON(data []byte) error {
	type reviewAlias Review
	var wire struct {
		reviewAlias
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = Review(wire.reviewAlias)
	r.ID = NormalizeID(wire.reviewAlias.ID, wire.AltID)
	return nil
}

// NormalizeID prefers the primary identifier and falls back to the
// backend's alternate one.
func NormalizeID(id, altID string) string {
	if id != "" {
		return id
	}
	return altID
}

// IsFeatured reports whether the backend flagged the book for promotion.
func (b Book) IsFeatured() bool {
	return b.Featured
}

// MatchesQuery reports whether the lower-cased query is a substring of the
// title or the author, ignoring case.
func (b Book) MatchesQuery(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.Author), q)
}

// Clone returns a copy that shares no slices with the receiver.
func (b Book) Clone() Book {
	clone := b
	clone.Reviews = make([]Review, len(b.Reviews))
	copy(clone.Reviews, b.Reviews)
	return clone
}
