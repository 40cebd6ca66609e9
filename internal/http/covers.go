package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache   CoverCache
	catalog CatalogReader
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache CoverCache, catalog CatalogReader) *CoversController {
	return &CoversController{
		cache:   cache,
		catalog: catalog,
	}
}

// GetCover serves a cached book cover image.
// GET /books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	book, ok := cc.catalog.GetBookByID(c.Param("id"))
	if !ok || book.CoverImage == "" {
		c.Status(http.StatusNotFound)
		return
	}

	// Get cached cover (will fetch if not cached)
	cachePath, err := cc.cache.GetCover(c.Request.Context(), book.ID, book.CoverImage)
	if err != nil || cachePath == "" {
		if err != nil {
			log.Printf("Cover cache: %s: %v", book.ID, err)
		}
		// Fall back to the backend asset URL
		c.Redirect(http.StatusTemporaryRedirect, cc.cache.URL(book.CoverImage))
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(cachePath)
}
