package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/entities"
)

// UIController serves the catalog pages.
type UIController struct {
	*pageRenderer
	catalog CatalogStore
}

func NewUIController(r *pageRenderer, catalog CatalogStore) *UIController {
	return &UIController{
		pageRenderer: r,
		catalog:      catalog,
	}
}

// HomePage shows the featured books and a few catalog numbers.
// GET /
func (controller *UIController) HomePage(c *gin.Context) {
	books := controller.catalog.Books()

	totalReviews := 0
	for _, b := range books {
		totalReviews += b.TotalReviews
	}

	controller.render(c, http.StatusOK, "home", gin.H{
		"Featured":     controller.catalog.FeaturedBooks(),
		"TotalBooks":   len(books),
		"TotalReviews": totalReviews,
		"TotalGenres":  len(controller.catalog.Genres()),
	})
}

// BooksPage lists the catalog with search, genre, rating and sort controls.
// GET /books?q=&genre=&rating=&sort=
func (controller *UIController) BooksPage(c *gin.Context) {
	q := parseBrowseQuery(c)
	books := controller.catalog.Browse(q)

	controller.render(c, http.StatusOK, "books", gin.H{
		"Title":         "Books",
		"Books":         books,
		"Query":         q,
		"Genres":        controller.catalog.Genres(),
		"RatingOptions": catalog.RatingOptions,
		"SortKeys":      catalog.SortKeys,
		"Total":         len(controller.catalog.Books()),
	})
}

// RefreshBooks re-fetches the catalog from the backend with the page's
// filters and returns to the list.
// POST /books/refresh
func (controller *UIController) RefreshBooks(c *gin.Context) {
	filter := entities.BookFilter{
		Genre:    c.PostForm("genre"),
		Search:   strings.TrimSpace(c.PostForm("q")),
		Featured: c.PostForm("featured") == "true",
	}
	if filter.Genre == catalog.GenreAll {
		filter.Genre = ""
	}
	if rating, err := strconv.ParseFloat(c.PostForm("rating"), 64); err == nil && rating > 0 {
		filter.MinRating = rating
	}

	controller.catalog.FetchBooks(c.Request.Context(), filter)

	if len(controller.catalog.Books()) == 0 {
		controller.flash(c, auth.FlashError, "No books could be loaded")
	} else {
		controller.flash(c, auth.FlashSuccess, MsgCatalogRefresh)
	}

	redirect(c, "/books"+browseQueryString(filter))
}

// BookPage shows one book with its reviews and the review form.
// GET /books/:id
func (controller *UIController) BookPage(c *gin.Context) {
	id := c.Param("id")

	book, ok := controller.catalog.GetBookByID(id)
	if !ok {
		book, ok = controller.catalog.FetchBookByID(c.Request.Context(), id)
	}
	if !ok {
		controller.notFound(c, "Book")
		return
	}

	reviewed := false
	if user := auth.GetUser(c); user != nil {
		for _, r := range book.Reviews {
			if r.UserID == user.ID {
				reviewed = true
				break
			}
		}
	}

	controller.render(c, http.StatusOK, "book", gin.H{
		"Title":    book.Title,
		"Book":     book,
		"Reviewed": reviewed,
		"Comment":  c.Query("comment"),
	})
}

// AboutPage is static.
// GET /about
func (controller *UIController) AboutPage(c *gin.Context) {
	controller.render(c, http.StatusOK, "about", gin.H{"Title": "About"})
}

// parseBrowseQuery reads the books page controls. Unknown sort keys and
// unparseable ratings are dropped.
func parseBrowseQuery(c *gin.Context) catalog.Query {
	q := catalog.Query{
		Search: strings.TrimSpace(c.Query("q")),
		Genre:  c.Query("genre"),
	}
	if q.Genre == catalog.GenreAll {
		q.Genre = ""
	}
	if rating, err := strconv.ParseFloat(c.Query("rating"), 64); err == nil && rating > 0 {
		q.MinRating = rating
	}
	for _, key := range catalog.SortKeys {
		if c.Query("sort") == key {
			q.Sort = key
		}
	}
	return q
}

func browseQueryString(filter entities.BookFilter) string {
	v := url.Values{}
	if filter.Search != "" {
		v.Set("q", filter.Search)
	}
	if filter.Genre != "" {
		v.Set("genre", filter.Genre)
	}
	if filter.MinRating > 0 {
		v.Set("rating", strconv.FormatFloat(filter.MinRating, 'g', -1, 64))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
