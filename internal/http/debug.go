package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const probeTimeout = 10 * time.Second

// ProbeResult is one connectivity check on the debug page.
type ProbeResult struct {
	Name   string
	OK     bool
	Detail string
}

// DebugController runs backend connectivity probes.
type DebugController struct {
	*pageRenderer
	backend   BackendProbe
	catalog   CatalogReader
	refresher RefreshStatus
}

func NewDebugController(r *pageRenderer, backend BackendProbe, catalog CatalogReader, refresher RefreshStatus) *DebugController {
	return &DebugController{
		pageRenderer: r,
		backend:      backend,
		catalog:      catalog,
		refresher:    refresher,
	}
}

// DebugPage calls the backend's /debug and /books endpoints and shows what
// came back.
// GET /debug
func (dc *DebugController) DebugPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	probes := []ProbeResult{dc.probeTime(ctx), dc.probeBooks(ctx)}

	data := gin.H{
		"Title":       "Debug",
		"APIURL":      dc.backend.BaseURL(),
		"BackendURL":  dc.api.BackendURL,
		"Env":         dc.api.Env,
		"Probes":      probes,
		"CatalogSize": len(dc.catalog.Books()),
	}
	if dc.refresher != nil {
		data["RefreshRunning"] = dc.refresher.IsRunning()
		data["NextRefresh"] = dc.refresher.NextRunTime()
		data["LastRefresh"] = dc.refresher.LastRefresh()
	}

	if isJSONRequest(c) {
		c.JSON(http.StatusOK, gin.H{"api_url": dc.backend.BaseURL(), "probes": probes})
		return
	}
	dc.render(c, http.StatusOK, "debug", data)
}

func (dc *DebugController) probeTime(ctx context.Context) ProbeResult {
	result := ProbeResult{Name: "GET /debug"}
	info, err := dc.backend.ServerTime(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = "server time " + info.Time
	return result
}

func (dc *DebugController) probeBooks(ctx context.Context) ProbeResult {
	result := ProbeResult{Name: "GET /books"}
	n, err := dc.backend.CountBooks(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = pluralize(n, "book", "books") + " returned"
	return result
}
