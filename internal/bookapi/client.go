// Package bookapi is the HTTP client for the book-review REST backend.
package bookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/metrics"
)

const (
	defaultTimeout = 15 * time.Second

	// Upper bound on response bodies we are willing to buffer.
	maxBodySize = 10 << 20
)

// Operation names, used as metric labels and in NetworkError.Op.
const (
	OpLogin         = "login"
	OpRegister      = "register"
	OpProfile       = "profile"
	OpUpdateProfile = "update_profile"
	OpListBooks     = "list_books"
	OpGetBook       = "get_book"
	OpAddReview     = "add_review"
	OpDebug         = "debug"
)

// Client talks to the backend. Every call is a single attempt; nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client rooted at baseURL, e.g. http://localhost:5000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthResponse is the body of a successful login or registration.
type AuthResponse struct {
	Token string        `json:"token"`
	User  entities.User `json:"user"`
}

// DebugInfo is the backend's /debug payload.
type DebugInfo struct {
	Time string
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var resp AuthResponse
	if err := c.do(ctx, OpLogin, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	body := map[string]string{"name": name, "email": email, "password": password}

	var resp AuthResponse
	if err := c.do(ctx, OpRegister, http.MethodPost, "/auth/register", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile resolves a token to its user.
func (c *Client) Profile(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var user entities.User
	if err := c.do(ctx, OpProfile, http.MethodGet, "/users/profile", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sends only the fields set in update.
func (c *Client) UpdateProfile(ctx context.Context, token string, update entities.ProfileUpdate) (*entities.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var user entities.User
	if err := c.do(ctx, OpUpdateProfile, http.MethodPut, "/users/profile", token, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListBooks fetches the catalog. Only the filter options that are set are sent.
func (c *Client) ListBooks(ctx context.Context, filter entities.BookFilter) ([]entities.Book, error) {
	path := "/books"
	if q := filterQuery(filter); q != "" {
		path += "?" + q
	}

	var books []entities.Book
	if err := c.do(ctx, OpListBooks, http.MethodGet, path, "", nil, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*entities.Book, error) {
	var book entities.Book
	if err := c.do(ctx, OpGetBook, http.MethodGet, "/books/"+url.PathEscape(id), "", nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// AddReview posts a review and returns the book's full updated record.
func (c *Client) AddReview(ctx context.Context, token, bookID string, rating int, comment string) (*entities.Book, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	body := struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}{Rating: rating, Comment: comment}

	var book entities.Book
	path := "/books/" + url.PathEscape(bookID) + "/reviews"
	if err := c.do(ctx, OpAddReview, http.MethodPost, path, token, body, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// ServerTime calls the backend's /debug endpoint.
func (c *Client) ServerTime(ctx context.Context) (*DebugInfo, error) {
	raw, err := c.raw(ctx, OpDebug, "/debug")
	if err != nil {
		return nil, err
	}
	return &DebugInfo{Time: gjson.GetBytes(raw, "time").String()}, nil
}

// CountBooks probes the unfiltered /books endpoint and reports how many
// entries it returned, failing if the body is not a JSON array.
func (c *Client) CountBooks(ctx context.Context) (int, error) {
	raw, err := c.raw(ctx, OpListBooks, "/books")
	if err != nil {
		return 0, err
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return 0, fmt.Errorf("response is not an array")
	}
	return len(parsed.Array()), nil
}

func filterQuery(filter entities.BookFilter) string {
	q := url.Values{}
	if filter.Genre != "" {
		q.Set("genre", filter.Genre)
	}
	if filter.MinRating > 0 {
		q.Set("minRating", strconv.FormatFloat(filter.MinRating, 'f', -1, 64))
	}
	if filter.Featured {
		q.Set("featured", "true")
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	return q.Encode()
}

func (c *Client) raw(ctx context.Context, op, path string) ([]byte, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, "", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(op, 0, time.Since(start))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveBackend(op, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// errorMessage pulls the human-readable message out of an error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
