package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/bookclub/internal/entities"
)

// Context keys for request data
const (
	ContextKeyUser      = "auth_user"
	ContextKeyRequestID = "request_id"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// MsgLoginRequired is flashed when a protected page is opened without a session.
const MsgLoginRequired = "Please log in"

// Session is the read side of the backend session the UI renders against.
// *session.Store satisfies it.
type Session interface {
	User() *entities.User
}

// CurrentUser stores the signed-in user, if any, in the Gin context so
// handlers and templates read one consistent snapshot per request.
func CurrentUser(s Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := s.User(); user != nil {
			c.Set(ContextKeyUser, user)
		}
		c.Next()
	}
}

// RequireLogin redirects anonymous browsers to the login page, remembering
// where they were going. JSON clients get 401.
func RequireLogin(sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c) != nil {
			c.Next()
			return
		}

		if isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		if sm != nil {
			sm.SetReturnTo(c.Request, c.Request.URL.RequestURI())
			sm.PutFlash(c.Request, FlashInfo, MsgLoginRequired)
		}
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
	}
}

// RedirectIfAuthenticated keeps signed-in users away from the login and
// register forms.
func RedirectIfAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c) != nil && c.Request.Method == http.MethodGet {
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestID tags every request with an id, reusing a sane incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetUser retrieves the signed-in user from the context, or nil.
func GetUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetRequestID retrieves the request id set by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
