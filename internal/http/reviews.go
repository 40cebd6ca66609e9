package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/entities"
)

// ReviewsController handles review submission.
type ReviewsController struct {
	*pageRenderer
	catalog CatalogStore
}

func NewReviewsController(r *pageRenderer, catalog CatalogStore) *ReviewsController {
	return &ReviewsController{
		pageRenderer: r,
		catalog:      catalog,
	}
}

// AddReview posts a rating and comment for a book. The book page shows the
// outcome as a flash; a rejected comment is kept in the form.
// POST /books/:id/reviews
func (rc *ReviewsController) AddReview(c *gin.Context) {
	bookID := c.Param("id")
	bookURL := "/books/" + url.PathEscape(bookID)

	rating, _ := strconv.Atoi(c.PostForm("rating"))
	input := entities.ReviewInput{
		Rating:  rating,
		Comment: c.PostForm("comment"),
	}
	if user := auth.GetUser(c); user != nil {
		input.UserID = user.ID
		input.UserName = user.Name
		input.UserAvatar = user.Avatar
	}

	book, err := rc.catalog.AddReview(c.Request.Context(), bookID, input)
	if err != nil {
		if isJSONRequest(c) {
			c.JSON(statusFor(err), ErrorResponse{Error: userMessage(err, MsgLoginToReview)})
			return
		}
		rc.flash(c, auth.FlashError, userMessage(err, MsgLoginToReview))
		if comment := strings.TrimSpace(input.Comment); comment != "" {
			bookURL += "?comment=" + url.QueryEscape(comment)
		}
		redirect(c, bookURL+"#review")
		return
	}

	if isJSONRequest(c) {
		c.JSON(http.StatusCreated, book)
		return
	}
	rc.flash(c, auth.FlashSuccess, MsgReviewAdded)
	redirect(c, bookURL+"#reviews")
}

func isJSONRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
