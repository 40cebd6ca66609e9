package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookclub/internal/metrics"
)

// Client runs the background queue for work page requests should not wait
// on, currently cover downloads. Tasks live in their own SQLite file so a
// busy queue never locks the session and token tables.
type Client struct {
	queue   *backlite.Client
	db      *sql.DB
	workers int
	metrics *metrics.Collector
	running atomic.Bool
}

// TasksDBPath maps the main database path to the queue database next to
// it: data/bookclub.db becomes data/bookclub-tasks.db.
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens (creating if needed) the queue database and installs the
// backlite schema. Queues must be registered before Start.
func NewClient(mainDBPath string, cfg Config, m *metrics.Collector) (*Client, error) {
	cfg = cfg.withDefaults()

	dsn := TasksDBPath(mainDBPath) + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err == nil {
		err = queue.Install()
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set up task queue: %w", err)
	}

	return &Client{queue: queue, db: db, workers: cfg.Workers, metrics: m}, nil
}

// Register adds queues. Call before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.queue.Register(q)
	}
}

// Start runs the workers until ctx is cancelled or Stop is called. A
// second call is a no-op.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Printf("Tasks: queue started with %d workers", c.workers)
	c.queue.Start(ctx)
}

// Stop waits for running tasks until ctx expires and reports whether they
// all finished.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.Load() {
		return true
	}
	finished := c.queue.Stop(ctx)
	if finished {
		log.Println("Tasks: queue stopped")
	} else {
		log.Println("Tasks: queue stopped before all tasks finished")
	}
	return finished
}

// Close releases the database. Call after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Enqueue saves tasks and counts them per queue.
func (c *Client) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	ids, err := c.queue.Add(tasks...).Ctx(ctx).Save()
	if err != nil {
		return nil, fmt.Errorf("enqueue tasks: %w", err)
	}
	for _, t := range tasks {
		c.metrics.TaskEnqueued(t.Config().Name)
	}
	return ids, nil
}

type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("Tasks: "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("Tasks: ERROR "+message, params...)
}
