package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Books   int               `json:"books"`
}

// HealthController answers the probes. Only the local database decides the
// status; the session and catalog checks are informational because both
// recover on their own once the backend is reachable.
type HealthController struct {
	db      Pinger
	session SessionReader
	catalog CatalogReader
	version string
}

func NewHealthController(db Pinger, session SessionReader, catalog CatalogReader, version string) *HealthController {
	return &HealthController{db: db, session: session, catalog: catalog, version: version}
}

// Status GET /health
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  healthy,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks: map[string]string{
			"database": h.databaseCheck(c.Request.Context()),
			"session":  h.sessionCheck(),
			"catalog":  h.catalogCheck(),
		},
		Books: len(h.catalog.Books()),
	}

	code := http.StatusOK
	if db := resp.Checks["database"]; db != "ok" && db != "not configured" {
		resp.Status = unhealthy
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

func (h *HealthController) databaseCheck(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *HealthController) sessionCheck() string {
	switch {
	case h.session.Loading():
		return "loading"
	case h.session.IsAuthenticated():
		return "authenticated"
	}
	return "anonymous"
}

func (h *HealthController) catalogCheck() string {
	switch {
	case h.catalog.Loading():
		return "loading"
	case len(h.catalog.Books()) == 0:
		return "empty"
	}
	return "ok"
}

// Ping GET /ping
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
