// Package scheduler runs periodic catalog refreshes.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookclub/internal/entities"
)

const refreshTimeout = 2 * time.Minute

// Standard 5-field cron; seconds are not accepted.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Refresher is the catalog operation the scheduler drives.
// *catalog.Store satisfies it.
type Refresher interface {
	FetchBooks(ctx context.Context, filter entities.BookFilter)
	Books() []entities.Book
}

// RefreshStatus describes the most recent refresh.
type RefreshStatus struct {
	At       time.Time
	Books    int
	Duration time.Duration
}

// CatalogRefreshScheduler re-fetches the unfiltered catalog on a cron
// schedule so the home and browse pages pick up books added elsewhere.
// Overlapping runs are skipped, not queued.
type CatalogRefreshScheduler struct {
	catalog  Refresher
	schedule string
	cron     *cron.Cron

	mu      sync.RWMutex
	entry   cron.EntryID
	running bool
	cancel  context.CancelFunc
	last    *RefreshStatus

	refreshing atomic.Bool
}

func NewCatalogRefreshScheduler(catalog Refresher, schedule string) *CatalogRefreshScheduler {
	return &CatalogRefreshScheduler{
		catalog:  catalog,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a 5-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers the refresh job and starts the cron runner. Cancelling
// ctx has the same effect as Stop. Starting twice is a no-op.
func (s *CatalogRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	sched, err := parser.Parse(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(s.runRefresh))

	ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	log.Printf("Scheduler: catalog refresh on %q, next run %v", s.schedule, s.cron.Entry(s.entry).Next)
	return nil
}

// Stop removes the job and waits for an in-flight refresh to finish.
func (s *CatalogRefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	s.cancel()
	s.mu.Unlock()

	// runRefresh takes s.mu when it finishes, so wait unlocked.
	<-s.cron.Stop().Done()
	log.Printf("Scheduler: catalog refresh stopped")
}

// RunNow refreshes in the background right away.
func (s *CatalogRefreshScheduler) RunNow() {
	go s.runRefresh()
}

func (s *CatalogRefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// IsSyncing reports whether a refresh is in flight.
func (s *CatalogRefreshScheduler) IsSyncing() bool {
	return s.refreshing.Load()
}

// NextRunTime is nil while the scheduler is stopped.
func (s *CatalogRefreshScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	return &next
}

// LastRefresh returns a copy of the latest finished refresh, or nil.
func (s *CatalogRefreshScheduler) LastRefresh() *RefreshStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	last := *s.last
	return &last
}

func (s *CatalogRefreshScheduler) runRefresh() {
	if !s.refreshing.CompareAndSwap(false, true) {
		log.Printf("Scheduler: catalog refresh skipped, previous run still going")
		return
	}
	defer s.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	s.catalog.FetchBooks(ctx, entities.BookFilter{})
	status := &RefreshStatus{At: start, Books: len(s.catalog.Books()), Duration: time.Since(start)}

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()

	log.Printf("Scheduler: refreshed %d books in %v", status.Books, status.Duration.Round(time.Millisecond))
}
