package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func init() {
	gin.SetMode(gin.TestMode)
}

func csrfRouter(handled *bool) *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false))
	router.GET("/login", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	router.POST("/login", func(c *gin.Context) {
		if handled != nil {
			*handled = true
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestCSRFMiddleware_IssuesTokenOnGET(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.String())
	assert.NotEmpty(t, rr.Result().Cookies())
}

func TestCSRFMiddleware_RejectsPOSTWithoutToken(t *testing.T) {
	var handled bool
	rr := httptest.NewRecorder()
	csrfRouter(&handled).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), MsgFormExpired)
	assert.False(t, handled, "handler ran after CSRF failure")
}

func TestCSRFMiddleware_AcceptsPOSTWithToken(t *testing.T) {
	router := csrfRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	token := rr.Body.String()
	require.NotEmpty(t, token)

	form := url.Values{CSRFFormField: {token}, "email": {"ada@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCSRFTokenField(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCSRFToken(c))
	assert.Empty(t, CSRFTokenField(c))

	c.Set(contextKeyCSRFToken, `abc"123`)
	assert.Equal(t, `<input type="hidden" name="gorilla.csrf.Token" value="abc&#34;123">`, string(CSRFTokenField(c)))
}

func TestCSRFErrorHandler(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/books/1/reviews", nil)
		req.Header.Set("Accept", "application/json")

		csrfErrorHandler(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"`+MsgFormExpired+`"}`, rr.Body.String())
	})

	t.Run("back to referer", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8190/books/1/reviews", nil)
		req.Header.Set("Referer", "http://localhost:8190/books/1?tab=reviews")

		csrfErrorHandler(rr, req)

		require.Equal(t, http.StatusSeeOther, rr.Code)
		loc, err := url.Parse(rr.Header().Get("Location"))
		require.NoError(t, err)
		assert.Empty(t, loc.Host)
		assert.Equal(t, "/books/1", loc.Path)
		assert.Equal(t, "reviews", loc.Query().Get("tab"))
		assert.Equal(t, MsgFormExpired, loc.Query().Get("error"))
	})

	t.Run("foreign referer", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8190/login", nil)
		req.Header.Set("Referer", "https://evil.example.com/phish")

		csrfErrorHandler(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("no referer", func(t *testing.T) {
		rr := httptest.NewRecorder()
		csrfErrorHandler(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	})
}
