package auth

import (
	"net/url"
	"strings"
)

// isLocalPath reports whether path is a site-relative redirect target:
// it must start with a single slash and carry no scheme or host, even one
// a browser would recover from backslashes or a nested URL.
func isLocalPath(path string) bool {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return false
	}
	if strings.ContainsAny(path, "\\\r\n") || strings.Contains(path, "://") {
		return false
	}
	u, err := url.Parse(path)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// SanitizeRedirectPath returns path when it is local, otherwise "/".
func SanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}
