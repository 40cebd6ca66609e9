package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/entities"
)

const warmCoverQueue = "warm_cover"

// CoverCache is the cover store the warming tasks fill. *covers.Cache satisfies it.
type CoverCache interface {
	GetCover(ctx context.Context, bookID, coverImage string) (string, error)
	Cached(bookID, coverImage string) (string, bool)
	InvalidateCover(bookID string) error
}

// WarmCoverTask downloads one book cover into the local cache.
type WarmCoverTask struct {
	BookID     string `json:"book_id"`
	CoverImage string `json:"cover_image"`
}

// Config returns the queue configuration for cover warming tasks.
func (t WarmCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        warmCoverQueue,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// WarmCoverProcessor creates a processor function for WarmCoverTask.
func WarmCoverProcessor(cache CoverCache) backlite.QueueProcessor[WarmCoverTask] {
	return func(ctx context.Context, task WarmCoverTask) error {
		if cache == nil {
			return fmt.Errorf("cover cache not configured")
		}

		if _, ok := cache.Cached(task.BookID, task.CoverImage); ok {
			return nil
		}
		// Files for a previous cover of this book are stale now.
		if err := cache.InvalidateCover(task.BookID); err != nil {
			log.Printf("Tasks: could not drop old covers for book %s: %v", task.BookID, err)
		}

		path, err := cache.GetCover(ctx, task.BookID, task.CoverImage)
		if err != nil {
			return fmt.Errorf("warm cover for book %s: %w", task.BookID, err)
		}
		if path != "" {
			log.Printf("Tasks: cached cover for book %s", task.BookID)
		}
		return nil
	}
}

// NewWarmCoverQueue creates a backlite queue for cover warming tasks.
func NewWarmCoverQueue(cache CoverCache) backlite.Queue {
	return backlite.NewQueue(WarmCoverProcessor(cache))
}

// Enqueuer is the part of Client the warmer needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// CoverWarmer turns catalog changes into warming tasks for covers that are
// neither cached nor already queued by this process.
type CoverWarmer struct {
	queue Enqueuer
	cache CoverCache

	mu     sync.Mutex
	queued map[string]struct{}
}

func NewCoverWarmer(queue Enqueuer, cache CoverCache) *CoverWarmer {
	return &CoverWarmer{
		queue:  queue,
		cache:  cache,
		queued: make(map[string]struct{}),
	}
}

// OnCatalogChange matches catalog.ChangeHook.
func (w *CoverWarmer) OnCatalogChange(books []entities.Book) {
	pending := w.pending(books)
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := w.queue.Enqueue(ctx, pending...); err != nil {
		log.Printf("Tasks: ERROR enqueueing %d cover tasks: %v", len(pending), err)
		w.forget(pending)
		return
	}
	log.Printf("Tasks: enqueued %d cover warming tasks", len(pending))
}

func (w *CoverWarmer) pending(books []entities.Book) []backlite.Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []backlite.Task
	for _, b := range books {
		if b.CoverImage == "" {
			continue
		}
		key := b.ID + "\x00" + b.CoverImage
		if _, ok := w.queued[key]; ok {
			continue
		}
		if _, ok := w.cache.Cached(b.ID, b.CoverImage); ok {
			continue
		}
		w.queued[key] = struct{}{}
		out = append(out, WarmCoverTask{BookID: b.ID, CoverImage: b.CoverImage})
	}
	return out
}

func (w *CoverWarmer) forget(tasks []backlite.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range tasks {
		if wt, ok := t.(WarmCoverTask); ok {
			delete(w.queued, wt.BookID+"\x00"+wt.CoverImage)
		}
	}
}
