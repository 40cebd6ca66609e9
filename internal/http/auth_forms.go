package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
)

// MsgTooManyAttempts is shown while the rate limiter blocks an email.
const MsgTooManyAttempts = "Too many attempts. Please try again later."

// MsgLastAttempt is appended to a failed login when one attempt is left.
const MsgLastAttempt = "One attempt left before the form is locked."

// AuthController handles the login, register and logout forms. The backend
// session lives in the session store; the browser only gets flashes.
type AuthController struct {
	*pageRenderer
	session     SessionStore
	rateLimiter *auth.RateLimiter
}

func NewAuthController(r *pageRenderer, session SessionStore, rateLimiter *auth.RateLimiter) *AuthController {
	return &AuthController{
		pageRenderer: r,
		session:      session,
		rateLimiter:  rateLimiter,
	}
}

// LoginPage renders the login form.
// GET /login
func (ac *AuthController) LoginPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "login", gin.H{
		"Title": "Log in",
		"Error": c.Query("error"),
	})
}

// RegisterPage renders the registration form.
// GET /register
func (ac *AuthController) RegisterPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "register", gin.H{
		"Title": "Create account",
		"Error": c.Query("error"),
	})
}

// Login handles the login form submission.
// POST /login
func (ac *AuthController) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	clientIP := c.ClientIP()

	form := gin.H{"Title": "Log in", "Email": email}

	if !ac.allow(c, clientIP, email) {
		form["Error"] = MsgTooManyAttempts
		ac.render(c, http.StatusTooManyRequests, "login", form)
		return
	}

	user, err := ac.session.Login(c.Request.Context(), email, password)
	if err != nil {
		ac.recordFailure(clientIP, email)
		log.Printf("Login failed for %s: %v", email, err)
		form["Error"] = userMessage(err, auth.MsgLoginRequired) + ac.lastAttemptHint(clientIP, email)
		ac.render(c, http.StatusOK, "login", form)
		return
	}

	ac.recordSuccess(clientIP, email)
	ac.flash(c, auth.FlashSuccess, MsgLoggedIn+", "+user.Name)
	redirect(c, ac.returnTo(c))
}

// Register handles the registration form submission.
// POST /register
func (ac *AuthController) Register(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	clientIP := c.ClientIP()

	form := gin.H{"Title": "Create account", "Name": name, "Email": email}

	if password != c.PostForm("confirm_password") && c.PostForm("confirm_password") != "" {
		form["Error"] = "Passwords do not match"
		ac.render(c, http.StatusOK, "register", form)
		return
	}

	if !ac.allow(c, clientIP, email) {
		form["Error"] = MsgTooManyAttempts
		ac.render(c, http.StatusTooManyRequests, "register", form)
		return
	}

	user, err := ac.session.Register(c.Request.Context(), name, email, password)
	if err != nil {
		ac.recordFailure(clientIP, email)
		log.Printf("Registration failed for %s: %v", email, err)
		form["Error"] = userMessage(err, auth.MsgLoginRequired)
		ac.render(c, http.StatusOK, "register", form)
		return
	}

	ac.recordSuccess(clientIP, email)
	ac.flash(c, auth.FlashSuccess, MsgRegistered+". Welcome, "+user.Name)
	redirect(c, ac.returnTo(c))
}

// Logout clears the session. No backend call is made.
// POST /logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.session.Logout()
	ac.flash(c, auth.FlashInfo, MsgLoggedOut)
	redirect(c, "/")
}

func (ac *AuthController) returnTo(c *gin.Context) string {
	if ac.sessions == nil {
		return "/"
	}
	return ac.sessions.PopReturnTo(c.Request, "/")
}

// allow checks the rate limiter; a nil limiter allows everything.
func (ac *AuthController) allow(c *gin.Context, ip, email string) bool {
	if ac.rateLimiter == nil || email == "" {
		return true
	}
	allowed, retryAfter := ac.rateLimiter.Allow(ip, email)
	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
	}
	return allowed
}

// lastAttemptHint warns when the next failure locks the form.
func (ac *AuthController) lastAttemptHint(ip, email string) string {
	if ac.rateLimiter == nil || email == "" || ac.rateLimiter.Remaining(ip, email) != 1 {
		return ""
	}
	return " " + MsgLastAttempt
}

func (ac *AuthController) recordFailure(ip, email string) {
	if ac.rateLimiter != nil && email != "" {
		ac.rateLimiter.RecordFailure(ip, email)
	}
}

func (ac *AuthController) recordSuccess(ip, email string) {
	if ac.rateLimiter != nil && email != "" {
		ac.rateLimiter.RecordSuccess(ip, email)
	}
}
