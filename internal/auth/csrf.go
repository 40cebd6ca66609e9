package auth

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const (
	// CSRFTokenHeader carries the token for fetch/XHR requests.
	CSRFTokenHeader = "X-CSRF-Token"
	// CSRFFormField is the hidden form field gorilla/csrf reads.
	CSRFFormField = "gorilla.csrf.Token"
)

const contextKeyCSRFToken = "csrf_token"

// CSRFMiddleware protects every unsafe request (login, register, review,
// profile and logout forms). Safe methods pass through with a fresh token
// stored in the context for templates. With secure=false requests are
// treated as plain HTTP, so localhost forms work without TLS.
func CSRFMiddleware(secret []byte, secure bool) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.FieldName(CSRFFormField),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if !secure {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
		if !passed {
			// The error handler already answered.
			c.Abort()
		}
	}
}

// MsgFormExpired is shown when a form is posted with a stale or missing
// CSRF token.
const MsgFormExpired = "Your form expired. Please try again."

const formExpiredPage = `<!DOCTYPE html>
<html>
<head><title>Form expired</title></head>
<body style="font-family: system-ui; max-width: 400px; margin: 100px auto; text-align: center;">
<h1>Form expired</h1>
<p>` + MsgFormExpired + `</p>
<p><a href="/">Back to Bookclub</a></p>
</body>
</html>`

// csrfErrorHandler answers a rejected form. JSON clients get the same error
// shape as the rest of the API; browsers go back to the local page they
// came from with ?error= set, which the login and register pages display.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"` + MsgFormExpired + `"}`))
		return
	}

	if back := refererPath(r); back != "" {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(formExpiredPage))
}

// refererPath turns the Referer into a local path carrying the error
// message, or "" when there is no usable same-site referer.
func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return ""
	}
	if ref.Host != "" && ref.Host != r.Host {
		return ""
	}
	if !isLocalPath(ref.Path) {
		return ""
	}
	q := ref.Query()
	q.Set("error", MsgFormExpired)
	return (&url.URL{Path: ref.Path, RawQuery: q.Encode()}).String()
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(contextKeyCSRFToken)
}

// CSRFTokenField returns a hidden input carrying the CSRF token, ready for templates.
func CSRFTokenField(c *gin.Context) template.HTML {
	token := GetCSRFToken(c)
	if token == "" {
		return ""
	}
	return template.HTML(`<input type="hidden" name="` + CSRFFormField + `" value="` + template.HTMLEscapeString(token) + `">`)
}
