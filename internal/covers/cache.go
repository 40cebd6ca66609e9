package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// URLResolver turns a book's coverImage value into a fetchable URL.
type URLResolver func(coverImage string) string

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true}

// Cache handles local caching of book cover images.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
	resolve    URLResolver
}

// NewCache creates a new cover cache at the specified directory. resolve
// may be nil, in which case coverImage values are used verbatim.
func NewCache(cacheDir string, resolve URLResolver) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		resolve: resolve,
	}, nil
}

// GetCover returns the cached cover for a book, fetching it first when absent.
// Returns an empty path when the book has no cover.
func (c *Cache) GetCover(ctx context.Context, bookID, coverImage string) (string, error) {
	if coverImage == "" {
		return "", nil
	}

	if cachePath, ok := c.Cached(bookID, coverImage); ok {
		return cachePath, nil
	}

	cachePath := filepath.Join(c.cacheDir, c.coverFilename(bookID, coverImage))
	if err := c.fetchAndCache(ctx, c.resolve(coverImage), cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// Cached reports the cached file for a cover without touching the network.
func (c *Cache) Cached(bookID, coverImage string) (string, bool) {
	if coverImage == "" {
		return "", false
	}
	cachePath := filepath.Join(c.cacheDir, c.coverFilename(bookID, coverImage))
	if _, err := os.Stat(cachePath); err != nil {
		return "", false
	}
	return cachePath, true
}

// URL returns the remote URL a cover would be fetched from.
func (c *Cache) URL(coverImage string) string {
	if coverImage == "" {
		return ""
	}
	return c.resolve(coverImage)
}

// InvalidateCover removes every cached cover for a book.
func (c *Cache) InvalidateCover(bookID string) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%s_*", safeID(bookID)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// coverFilename is stable per (book, cover value), so a changed cover URL
// lands in a new file.
func (c *Cache) coverFilename(bookID, coverImage string) string {
	hash := sha256.Sum256([]byte(coverImage))
	return fmt.Sprintf("cover_%s_%x%s", safeID(bookID), hash[:8], coverExt(coverImage))
}

func safeID(bookID string) string {
	if bookID != "" && !unsafeIDChars.MatchString(bookID) {
		return bookID
	}
	hash := sha256.Sum256([]byte(bookID))
	return fmt.Sprintf("h%x", hash[:6])
}

func coverExt(coverImage string) string {
	p := coverImage
	if u, err := url.Parse(coverImage); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if imageExts[ext] {
		return ext
	}
	return ".jpg"
}

// fetchAndCache downloads a cover image and saves it to the cache.
func (c *Cache) fetchAndCache(ctx context.Context, coverURL, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Bookclub/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
