package auth

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// cookieWriter commits the browser session the first time headers go out.
// Gin handlers redirect and render without a hook, so the cookie has to be
// written from inside the writer.
type cookieWriter struct {
	gin.ResponseWriter
	sm      *SessionManager
	req     *http.Request
	flushed bool
}

func (w *cookieWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

func (w *cookieWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

func (w *cookieWriter) flush() {
	if w.flushed {
		return
	}
	w.flushed = true

	ctx := w.req.Context()
	status := w.sm.Status(ctx)
	if status == scs.Unmodified {
		return
	}

	token, expiry := "", time.Time{}
	if status == scs.Modified {
		var err error
		token, expiry, err = w.sm.Commit(ctx)
		if err != nil {
			log.Printf("Session: failed to commit browser session: %v", err)
			return
		}
	}
	w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
}

// SessionLoadSave loads the browser session (flashes, return_to) into the
// request context and writes the cookie back when it changed. It must run
// before anything touches flashes.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("Session: failed to load browser session: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &cookieWriter{ResponseWriter: c.Writer, sm: sm, req: c.Request}
		c.Writer = w
		c.Next()

		// Handlers that only set a status never write headers themselves.
		w.flush()
	}
}
