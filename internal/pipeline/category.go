package pipeline

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
	"github.com/lepinkainen/bookdex/internal/query"
	"github.com/lepinkainen/bookdex/internal/quality"
)

// HomeUpdate is one delivery on the Home channel. The first carries the
// cached snapshot; a second, with Refreshed set, arrives only when at
// least one category was stale or empty and a refresh pass ran.
type HomeUpdate struct {
	Categories []book.Category
	Refreshed  bool
	Err        error
}

// Home delivers the cached category shelves immediately and, if any shelf
// is stale or empty, refreshes those shelves and delivers the snapshot
// again. The channel is closed after the final delivery.
func (p *Pipeline) Home(ctx context.Context) <-chan HomeUpdate {
	updates := make(chan HomeUpdate, 2)
	p.enqueue(func() {
		defer close(updates)

		snapshot, err := p.homeSnapshot()
		if err != nil {
			updates <- HomeUpdate{Err: err}
			return
		}
		updates <- HomeUpdate{Categories: snapshot}

		now := p.nowMillis()
		var refreshed bool
		for _, cat := range snapshot {
			if len(cat.Books) > 0 && !p.stale(cat.FetchedAt, now) {
				continue
			}
			if err := p.refreshCategory(ctx, cat); err != nil {
				if errors.IsStorageError(err) {
					updates <- HomeUpdate{Err: err}
					return
				}
				// Upstream trouble. Keep whatever the shelf already has.
				slog.Warn("Category refresh failed, serving cached books",
					"category", cat.Name, "error", err)
				continue
			}
			refreshed = true
		}
		if !refreshed {
			return
		}

		snapshot, err = p.homeSnapshot()
		if err != nil {
			updates <- HomeUpdate{Err: err}
			return
		}
		updates <- HomeUpdate{Categories: snapshot, Refreshed: true}
	})
	return updates
}

// RefreshAll forces a refresh of every category, ignoring TTLs. Upstream
// failures skip the affected category; only storage errors abort the run.
func (p *Pipeline) RefreshAll(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	p.enqueue(func() {
		categories, err := p.store.Categories()
		if err != nil {
			result <- err
			return
		}
		for _, cat := range categories {
			if err := p.refreshCategory(ctx, cat); err != nil {
				if errors.IsStorageError(err) {
					result <- err
					return
				}
				slog.Warn("Category refresh failed, keeping cached books",
					"category", cat.Name, "error", err)
			}
		}
		result <- nil
	})
	return result
}

// homeSnapshot loads every category with its ordered shelf of books.
func (p *Pipeline) homeSnapshot() ([]book.Category, error) {
	categories, err := p.store.Categories()
	if err != nil {
		return nil, err
	}
	for i := range categories {
		books, err := p.store.CategoryBooks(categories[i].ID)
		if err != nil {
			return nil, err
		}
		categories[i].Books = books
	}
	return categories, nil
}

// refreshCategory runs the full acquisition pass for one shelf: fetch up
// to two result pages, filter, rank, enrich within budget, re-rank,
// truncate and persist. A pass that yields nothing leaves the existing
// shelf untouched.
func (p *Pipeline) refreshCategory(ctx context.Context, cat book.Category) error {
	q := query.BuildCategoryQuery(cat.QueryHint)
	if q == "" {
		return nil
	}

	target := categoryTarget(cat.ID)
	if !p.begin(target) {
		return nil
	}
	defer p.end(target)

	slog.Debug("Refreshing category", "category", cat.Name, "query", q)

	candidates, err := p.provider.Search(ctx, q, 0)
	if err != nil {
		return err
	}
	// A thin first page gets one follow-up page; losing it is non-fatal.
	if len(candidates) < pageSize {
		second, err := p.provider.Search(ctx, q, pageSize)
		if err != nil {
			slog.Warn("Second result page failed, continuing with first",
				"category", cat.Name, "error", err)
		} else {
			candidates = append(candidates, second...)
		}
	}
	candidates = dedupeByID(candidates)

	admissible := make([]book.Book, 0, len(candidates))
	for _, c := range candidates {
		if quality.IsAdmissible(c) {
			admissible = append(admissible, c)
		}
	}

	ranked := quality.Rank(admissible)
	complete := p.enrich(ctx, ranked, categoryDetailBudget, categoryTargetSize)
	final := quality.Rank(complete)
	if len(final) > categoryTargetSize {
		final = final[:categoryTargetSize]
	}

	if len(final) == 0 {
		slog.Debug("No complete candidates, keeping cached shelf", "category", cat.Name)
		return nil
	}

	now := p.nowMillis()
	ids := make([]string, len(final))
	for i := range final {
		final[i].FetchedAt = now
		if err := p.store.UpsertBook(final[i]); err != nil {
			return err
		}
		ids[i] = final[i].ID
	}
	if err := p.store.ReplaceCategoryBooks(cat.ID, ids); err != nil {
		return err
	}
	return p.store.SetCategoryFetchedAt(cat.ID, now)
}
