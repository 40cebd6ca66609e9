package bookapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/api/", WithHTTPClient(server.Client()))
}

func TestClient_Login(t *testing.T) {
	t.Run("success normalizes user id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/auth/login", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Empty(t, r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.c", body["email"])
			assert.Equal(t, "pw", body["password"])

			w.Write([]byte(`{"token": "T", "user": {"_id": "u1", "name": "Ann", "email": "a@b.c"}}`))
		})

		resp, err := client.Login(context.Background(), "a@b.c", "pw")
		require.NoError(t, err)
		assert.Equal(t, "T", resp.Token)
		assert.Equal(t, "u1", resp.User.ID)
		assert.Equal(t, "Ann", resp.User.Name)
	})

	t.Run("backend message is surfaced", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message": "Invalid credentials"}`))
		})

		_, err := client.Login(context.Background(), "a@b.c", "bad")

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
		assert.Equal(t, "Invalid credentials", reqErr.Message)
		assert.Equal(t, "Invalid credentials", err.Error())
	})

	t.Run("error field is used when message is absent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "Email taken"}`))
		})

		_, err := client.Register(context.Background(), "Ann", "a@b.c", "pw")
		assert.EqualError(t, err, "Email taken")
	})

	t.Run("non-json error body leaves message empty", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		})

		_, err := client.Login(context.Background(), "a@b.c", "pw")

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Empty(t, reqErr.Message)
		assert.EqualError(t, WithDefaultMessage(err, "Login failed"), "Login failed")
	})
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "a@b.c", "pw")

	assert.True(t, IsNetworkError(err))
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, OpLogin, netErr.Op)
	assert.Same(t, err, WithDefaultMessage(err, "Login failed"))
}

func TestClient_Profile(t *testing.T) {
	t.Run("sends bearer token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/profile", r.URL.Path)
			assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id": "u1", "name": "Ann", "email": "a@b.c", "bio": "hi"}`))
		})

		user, err := client.Profile(context.Background(), "T")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "hi", user.Bio)
	})

	t.Run("missing token makes no request", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		_, err := client.Profile(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestClient_UpdateProfile_SendsOnlySetFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"bio": "new bio"}`, string(body))
		w.Write([]byte(`{"_id": "u1", "name": "Ann", "email": "a@b.c", "bio": "new bio"}`))
	})

	bio := "new bio"
	user, err := client.UpdateProfile(context.Background(), "T", entities.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "new bio", user.Bio)
}

func TestClient_ListBooks(t *testing.T) {
	tests := []struct {
		name   string
		filter entities.BookFilter
		query  map[string]string
	}{
		{"no filter", entities.BookFilter{}, map[string]string{}},
		{"all options", entities.BookFilter{Genre: "Sci-Fi", MinRating: 4.5, Featured: true, Search: "dune"},
			map[string]string{"genre": "Sci-Fi", "minRating": "4.5", "featured": "true", "search": "dune"}},
		{"integer rating", entities.BookFilter{MinRating: 4}, map[string]string{"minRating": "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/books", r.URL.Path)
				assert.Len(t, r.URL.Query(), len(tt.query))
				for k, v := range tt.query {
					assert.Equal(t, v, r.URL.Query().Get(k))
				}
				w.Write([]byte(`[{"_id": "1", "title": "Dune"}, {"id": "2", "title": "Emma", "reviews": []}]`))
			})

			books, err := client.ListBooks(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, books, 2)
			assert.Equal(t, "1", books[0].ID)
			assert.NotNil(t, books[0].Reviews)
		})
	}
}

func TestClient_GetBook_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Book not found"}`))
	})

	_, err := client.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_AddReview(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/books/b1/reviews", r.URL.Path)
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"rating": 5, "comment": "Great"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"_id": "b1", "title": "Dune", "averageRating": 4.7, "totalReviews": 3,
			"reviews": [{"_id": "r1", "rating": 5, "comment": "Great"}]}`))
	})

	book, err := client.AddReview(context.Background(), "T", "b1", 5, "Great")
	require.NoError(t, err)
	assert.Equal(t, "b1", book.ID)
	assert.Equal(t, 4.7, book.AverageRating)
	assert.Equal(t, 3, book.TotalReviews)
	assert.Equal(t, "r1", book.Reviews[0].ID)
}

func TestClient_DebugProbes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/debug":
			w.Write([]byte(`{"time": "2024-05-01T10:00:00Z"}`))
		case "/api/books":
			w.Write([]byte(`[{"id": "1"}, {"id": "2"}, {"id": "3"}]`))
		}
	})

	info, err := client.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", info.Time)

	count, err := client.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestClient_CountBooks_NotArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"books": []}`))
	})

	_, err := client.CountBooks(context.Background())
	assert.EqualError(t, err, "response is not an array")
}

func TestClient_RecordsMetrics(t *testing.T) {
	collector := metrics.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMetrics(collector), WithTimeout(time.Second))
	_, err := client.ListBooks(context.Background(), entities.BookFilter{})
	require.NoError(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "bookclub_backend_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWithDefaultMessage(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, WithDefaultMessage(plain, "x"))

	withMsg := &RequestError{StatusCode: 400, Message: "bad"}
	assert.EqualError(t, WithDefaultMessage(withMsg, "x"), "bad")
}
