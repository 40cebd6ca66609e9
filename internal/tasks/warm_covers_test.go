package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/entities"
)

type fakeCache struct {
	cached      map[string]bool
	fetched     []string
	invalidated []string
	err         error
}

func (f *fakeCache) InvalidateCover(bookID string) error {
	f.invalidated = append(f.invalidated, bookID)
	return nil
}

func (f *fakeCache) GetCover(ctx context.Context, bookID, coverImage string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.fetched = append(f.fetched, bookID)
	return "/tmp/" + bookID, nil
}

func (f *fakeCache) Cached(bookID, coverImage string) (string, bool) {
	return "", f.cached[bookID]
}

type fakeQueue struct {
	tasks []backlite.Task
	err   error
}

func (f *fakeQueue) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, tasks...)
	return make([]string, len(tasks)), nil
}

func TestWarmCoverTaskConfig(t *testing.T) {
	cfg := WarmCoverTask{BookID: "1"}.Config()

	assert.Equal(t, "warm_cover", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestWarmCoverProcessor(t *testing.T) {
	t.Run("fetches cover", func(t *testing.T) {
		cache := &fakeCache{}
		err := WarmCoverProcessor(cache)(context.Background(), WarmCoverTask{BookID: "1", CoverImage: "/c.jpg"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, cache.fetched)
		assert.Equal(t, []string{"1"}, cache.invalidated, "old cover files dropped first")
	})

	t.Run("already cached is a no-op", func(t *testing.T) {
		cache := &fakeCache{cached: map[string]bool{"1": true}}
		err := WarmCoverProcessor(cache)(context.Background(), WarmCoverTask{BookID: "1", CoverImage: "/c.jpg"})
		require.NoError(t, err)
		assert.Empty(t, cache.fetched)
		assert.Empty(t, cache.invalidated)
	})

	t.Run("returns fetch error for retry", func(t *testing.T) {
		cache := &fakeCache{err: errors.New("404")}
		err := WarmCoverProcessor(cache)(context.Background(), WarmCoverTask{BookID: "1", CoverImage: "/c.jpg"})
		assert.Error(t, err)
	})

	t.Run("nil cache", func(t *testing.T) {
		err := WarmCoverProcessor(nil)(context.Background(), WarmCoverTask{BookID: "1"})
		assert.Error(t, err)
	})
}

func TestCoverWarmer_OnCatalogChange(t *testing.T) {
	books := []entities.Book{
		{ID: "1", CoverImage: "/dune.jpg"},
		{ID: "2", CoverImage: ""},
		{ID: "3", CoverImage: "/emma.jpg"},
	}

	t.Run("skips cached, coverless and already queued", func(t *testing.T) {
		queue := &fakeQueue{}
		warmer := NewCoverWarmer(queue, &fakeCache{cached: map[string]bool{"3": true}})

		warmer.OnCatalogChange(books)
		warmer.OnCatalogChange(books)

		require.Len(t, queue.tasks, 1)
		assert.Equal(t, WarmCoverTask{BookID: "1", CoverImage: "/dune.jpg"}, queue.tasks[0])
	})

	t.Run("changed cover is queued again", func(t *testing.T) {
		queue := &fakeQueue{}
		warmer := NewCoverWarmer(queue, &fakeCache{})

		warmer.OnCatalogChange(books[:1])
		warmer.OnCatalogChange([]entities.Book{{ID: "1", CoverImage: "/dune-v2.jpg"}})

		assert.Len(t, queue.tasks, 2)
	})

	t.Run("failed enqueue is retried on next change", func(t *testing.T) {
		queue := &fakeQueue{err: errors.New("db locked")}
		warmer := NewCoverWarmer(queue, &fakeCache{})

		warmer.OnCatalogChange(books[:1])
		queue.err = nil
		warmer.OnCatalogChange(books[:1])

		assert.Len(t, queue.tasks, 1)
	})
}
