package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/config"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   string
		status int
	}{
		{
			name:   "unauthenticated",
			err:    fmt.Errorf("add review: %w", bookapi.ErrUnauthenticated),
			want:   MsgLoginToReview,
			status: http.StatusUnauthorized,
		},
		{
			name:   "validation",
			err:    &catalog.ValidationError{Field: "rating", Message: "Please select a rating before submitting."},
			want:   "Please select a rating before submitting.",
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "network",
			err:    &bookapi.NetworkError{Op: bookapi.OpAddReview, Err: errors.New("connection refused")},
			want:   MsgServerDown,
			status: http.StatusBadGateway,
		},
		{
			name:   "backend message",
			err:    &bookapi.RequestError{StatusCode: http.StatusBadRequest, Message: "You have already reviewed this book"},
			want:   "You have already reviewed this book",
			status: http.StatusBadRequest,
		},
		{
			name:   "backend without message",
			err:    &bookapi.RequestError{StatusCode: http.StatusInternalServerError},
			want:   "request failed: HTTP 500",
			status: http.StatusInternalServerError,
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			want:   MsgUnexpected,
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err, MsgLoginToReview))
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}

	assert.Empty(t, userMessage(nil, MsgLoginToReview))
}

func TestCoverSrc(t *testing.T) {
	api := config.API{BackendURL: "http://localhost:5000"}

	direct := coverSrc(api, false)
	assert.Equal(t, template.URL("http://localhost:5000/uploads/a.jpg"), direct("1", "/uploads/a.jpg"))
	assert.Equal(t, template.URL("https://cdn.test/a.jpg"), direct("1", "https://cdn.test/a.jpg"))
	assert.Empty(t, direct("1", ""))

	cached := coverSrc(api, true)
	assert.Equal(t, template.URL("/books/abc%20d/cover"), cached("abc d", "/uploads/a.jpg"))
	assert.Empty(t, cached("1", ""))
}

func TestTemplateFuncs(t *testing.T) {
	t.Run("stars", func(t *testing.T) {
		assert.Equal(t, []bool{true, true, true, true, false}, stars(4))
		assert.Equal(t, []bool{true, true, true, true, true}, stars(4.5))
		assert.Equal(t, []bool{true, true, true, false, false}, stars(3.2))
		assert.Equal(t, []bool{false, false, false, false, false}, stars(nil))
	})

	t.Run("formatRating", func(t *testing.T) {
		assert.Equal(t, "4.0", formatRating(4))
		assert.Equal(t, "3.7", formatRating(3.66))
	})

	t.Run("formatDate", func(t *testing.T) {
		assert.Equal(t, "Jan 2, 2024", formatDate("2024-01-02T10:00:00.000Z"))
		assert.Equal(t, "Mar 4, 2024", formatDate("2024-03-04"))
		assert.Equal(t, "yesterday", formatDate("yesterday"))
	})

	t.Run("labels", func(t *testing.T) {
		assert.Equal(t, "Any rating", ratingLabel(0))
		assert.Equal(t, "4.5+ stars", ratingLabel(4.5))
		assert.Equal(t, "Highest rated", sortLabel(catalog.SortRating))
		assert.Equal(t, "bogus", sortLabel("bogus"))
	})

	t.Run("truncate and pluralize", func(t *testing.T) {
		assert.Equal(t, "short", truncate("short", 10))
		assert.Equal(t, "a long…", truncate("a long sentence", 7))
		assert.Equal(t, "1 review", pluralize(1, "review", "reviews"))
		assert.Equal(t, "0 reviews", pluralize(0, "review", "reviews"))
	})
}
