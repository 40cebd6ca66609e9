package http

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/bookapi"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/config"
)

// User-facing messages for errors that carry none of their own.
const (
	MsgLoginToReview  = "You must be logged in to add a review"
	MsgServerDown     = "Cannot reach the server. Please try again later."
	MsgUnexpected     = "Something went wrong"
	MsgReviewAdded    = "Review added"
	MsgLoggedIn       = "Welcome back"
	MsgRegistered     = "Account created"
	MsgLoggedOut      = "You have been logged out"
	MsgProfileUpdated = "Profile updated"
	MsgCatalogRefresh = "Catalog refreshed"
)

// ErrorResponse is the standard error response format for JSON errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// userMessage turns a store error into the notification text shown to the
// reader. unauthenticated is the text used for ErrUnauthenticated, which
// differs between the review form and the rest of the UI.
func userMessage(err error, unauthenticated string) string {
	var validationErr *catalog.ValidationError
	var requestErr *bookapi.RequestError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, bookapi.ErrUnauthenticated):
		return unauthenticated
	case errors.As(err, &validationErr):
		return validationErr.Message
	case bookapi.IsNetworkError(err):
		return MsgServerDown
	case errors.As(err, &requestErr):
		return requestErr.Error()
	default:
		log.Printf("Unexpected error shown to user: %v", err)
		return MsgUnexpected
	}
}

// statusFor picks the HTTP status for a store error on JSON responses.
func statusFor(err error) int {
	var validationErr *catalog.ValidationError
	var requestErr *bookapi.RequestError

	switch {
	case errors.Is(err, bookapi.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case bookapi.IsNetworkError(err):
		return http.StatusBadGateway
	case errors.As(err, &requestErr) && requestErr.StatusCode >= 400:
		return requestErr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// pageRenderer fills in the data every template needs.
type pageRenderer struct {
	session  SessionReader
	catalog  CatalogReader
	sessions *auth.SessionManager
	api      config.API
}

// render executes the named template with the common layout data added.
func (p *pageRenderer) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = auth.GetUser(c)
	data["SessionLoading"] = p.session != nil && p.session.Loading()
	data["CatalogLoading"] = p.catalog != nil && p.catalog.Loading()
	data["CSRFField"] = auth.CSRFTokenField(c)
	data["Flashes"] = p.popFlashes(c)
	data["RequestID"] = auth.GetRequestID(c)
	data["Development"] = p.api.IsDevelopment()
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Bookclub"
	}
	c.HTML(status, name, data)
}

// notFound renders the shared 404 page.
func (p *pageRenderer) notFound(c *gin.Context, what string) {
	p.render(c, http.StatusNotFound, "not_found", gin.H{
		"Title":   "Not found",
		"Message": what + " not found",
	})
}

func (p *pageRenderer) flash(c *gin.Context, kind, message string) {
	if p.sessions == nil {
		return
	}
	p.sessions.PutFlash(c.Request, kind, message)
}

func (p *pageRenderer) popFlashes(c *gin.Context) []auth.Flash {
	if p.sessions == nil {
		return nil
	}
	return p.sessions.PopFlashes(c.Request)
}

// redirect sends the browser on with a 303 so a refresh never re-posts a
// form. Only site-relative targets are followed.
func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, auth.SanitizeRedirectPath(location))
}

// coverSrc is the template function for cover image URLs. Books with a cover
// go through the local cover route when caching is on.
func coverSrc(api config.API, cached bool) func(bookID, coverImage string) template.URL {
	return func(bookID, coverImage string) template.URL {
		if coverImage == "" {
			return ""
		}
		if cached {
			return template.URL("/books/" + url.PathEscape(bookID) + "/cover")
		}
		return template.URL(api.AssetURL(coverImage))
	}
}
