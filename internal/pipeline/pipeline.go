// Package pipeline orchestrates catalog acquisition: cache lookup,
// staleness checks, upstream search, quality filtering, ranking, budgeted
// detail enrichment and the final cache write. All IO runs on a single
// background worker per Pipeline; callers get results back on channels.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/config"
	"github.com/lepinkainen/bookdex/internal/store"
)

// Per-refresh budgets. Search gets a larger budget because the user is
// actively waiting on it.
const (
	categoryDetailBudget = 20
	categoryTargetSize   = 12
	searchDetailBudget   = 30
	searchTargetSize     = 20
	fallbackThreshold    = 10
	pageSize             = 40
)

// Provider executes one upstream search call or one per-volume detail
// call. The Google Books client implements it; tests use fakes.
type Provider interface {
	Search(ctx context.Context, query string, startIndex int) ([]book.Book, error)
	Details(ctx context.Context, volumeID string) (string, error)
}

// Config tunes a Pipeline. Zero values fall back to the 7-day TTL and the
// wall clock.
type Config struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// Pipeline is one acquisition engine bound to a store and a provider.
type Pipeline struct {
	store    *store.Store
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	inflight map[string]bool
}

// New creates a Pipeline and starts its background worker.
func New(st *store.Store, provider Provider, cfg Config) *Pipeline {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	p := &Pipeline{
		store:    st,
		provider: provider,
		ttl:      ttl,
		now:      now,
		jobs:     make(chan func(), 64),
		done:     make(chan struct{}),
		inflight: make(map[string]bool),
	}
	go p.run()
	return p
}

// Close stops the background worker. In-flight jobs finish; queued jobs
// are dropped.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Pipeline) run() {
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) enqueue(job func()) {
	select {
	case p.jobs <- job:
	case <-p.done:
	}
}

// begin marks a refresh target as in flight. It returns false when the
// target already has a refresh underway; there is no Fetching -> Fetching
// re-entrancy for the same target.
func (p *Pipeline) begin(target string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight[target] {
		return false
	}
	p.inflight[target] = true
	return true
}

func (p *Pipeline) end(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, target)
}

func (p *Pipeline) nowMillis() int64 {
	return p.now().UnixMilli()
}

func (p *Pipeline) stale(fetchedAt, now int64) bool {
	return now-fetchedAt > p.ttl.Milliseconds()
}

// dedupeByID keeps the first occurrence of each book ID. Merged result
// pages can overlap and the ordered association tables reject duplicates.
func dedupeByID(books []book.Book) []book.Book {
	seen := make(map[string]bool, len(books))
	out := books[:0]
	for _, b := range books {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}

func categoryTarget(categoryID int64) string {
	return fmt.Sprintf("category:%d", categoryID)
}

func searchTarget(normalizedQuery string) string {
	return "search:" + normalizedQuery
}

// BookResult delivers one stored book, or nil when absent.
type BookResult struct {
	Book *book.Book
	Err  error
}

// Open fetches a stored book for display and records the open timestamp.
func (p *Pipeline) Open(ctx context.Context, bookID string) <-chan BookResult {
	result := make(chan BookResult, 1)
	p.enqueue(func() {
		b, err := p.store.GetBook(bookID)
		if err != nil || b == nil {
			result <- BookResult{Book: b, Err: err}
			return
		}
		opened := p.nowMillis()
		if err := p.store.TouchLastOpened(bookID, opened); err != nil {
			result <- BookResult{Book: b, Err: err}
			return
		}
		b.LastOpenedAt = opened
		result <- BookResult{Book: b}
	})
	return result
}
