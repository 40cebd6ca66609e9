package http

import (
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/config"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// loadTemplates parses the page templates from dir, or from the copies
// embedded in the binary when dir is empty.
func loadTemplates(dir string, api config.API, coversCached bool) (*template.Template, error) {
	tmpl := template.New("").Funcs(templateFuncs(api, coversCached))
	if dir == "" {
		return tmpl.ParseFS(embeddedTemplates, "templates/*.html")
	}
	return tmpl.ParseGlob(filepath.Join(dir, "*.html"))
}

func templateFuncs(api config.API, coversCached bool) template.FuncMap {
	return template.FuncMap{
		"coverSrc":     coverSrc(api, coversCached),
		"avatarSrc":    api.AssetURL,
		"stars":        stars,
		"formatRating": formatRating,
		"formatDate":   formatDate,
		"ratingLabel":  ratingLabel,
		"sortLabel":    sortLabel,
		"truncate":     truncate,
		"pluralize":    pluralize,
	}
}

// stars returns five flags, true for each filled star of a rounded rating.
// Review ratings are ints and book averages are floats; both are accepted.
func stars(rating any) []bool {
	filled := int(toFloat(rating) + 0.5)
	out := make([]bool, 5)
	for i := range out {
		out[i] = i < filled
	}
	return out
}

func formatRating(rating any) string {
	return fmt.Sprintf("%.1f", toFloat(rating))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// formatDate renders backend ISO timestamps as a short date. Anything that
// does not parse is shown as sent.
func formatDate(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}

func ratingLabel(min float64) string {
	if min == 0 {
		return "Any rating"
	}
	return fmt.Sprintf("%g+ stars", min)
}

func sortLabel(key string) string {
	switch key {
	case catalog.SortTitle:
		return "Title"
	case catalog.SortAuthor:
		return "Author"
	case catalog.SortRating:
		return "Highest rated"
	case catalog.SortReviews:
		return "Most reviewed"
	case catalog.SortYear:
		return "Newest"
	default:
		return key
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
