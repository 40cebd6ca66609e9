package auth

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type directive struct {
	name    string
	sources []string
}

type contentPolicy []directive

func (p contentPolicy) String() string {
	parts := make([]string, 0, len(p))
	for _, d := range p {
		parts = append(parts, d.name+" "+strings.Join(d.sources, " "))
	}
	return strings.Join(parts, "; ")
}

const permissionsPolicy = "accelerometer=(), camera=(), geolocation=(), microphone=(), payment=(), usb=()"

// SecurityHeadersMiddleware sets the CSP and related headers on every page.
// Covers are served by the backend, so assetOrigins (usually the backend
// URL) are added to img-src.
func SecurityHeadersMiddleware(assetOrigins ...string) gin.HandlerFunc {
	images := []string{"'self'", "data:"}
	for _, raw := range assetOrigins {
		if origin := extractOrigin(raw); origin != "" {
			images = append(images, origin)
		}
	}

	base := contentPolicy{
		{"default-src", []string{"'self'"}},
		{"script-src", []string{"'self'"}},
		{"style-src", []string{"'self'", "'unsafe-inline'"}},
		{"img-src", images},
		{"font-src", []string{"'self'"}},
		{"connect-src", []string{"'self'"}},
		{"frame-ancestors", []string{"'none'"}},
	}

	return func(c *gin.Context) {
		// Forms post back to the host the browser used, which differs from
		// 'self' behind some proxies.
		forms := []string{"'self'"}
		if host := c.Request.Host; host != "" {
			forms = append(forms, "http://"+host, "https://"+host)
		}
		policy := append(contentPolicy{}, base...)
		policy = append(policy, directive{"form-action", forms})

		h := c.Writer.Header()
		h.Set("Content-Security-Policy", policy.String())
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", permissionsPolicy)
		c.Next()
	}
}

// extractOrigin reduces a URL to scheme://host. A bare host is assumed to
// be https.
func extractOrigin(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

// StrictTransportSecurityMiddleware sets HSTS on requests that arrived over
// TLS, directly or through a proxy reporting X-Forwarded-Proto.
func StrictTransportSecurityMiddleware(maxAge int) gin.HandlerFunc {
	value := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"
	return func(c *gin.Context) {
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			c.Header("Strict-Transport-Security", value)
		}
		c.Next()
	}
}
