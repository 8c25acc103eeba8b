package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
	"github.com/lepinkainen/bookdex/internal/query"
	"github.com/lepinkainen/bookdex/internal/quality"
)

// SearchResult delivers the outcome of one search request.
type SearchResult struct {
	Books []book.Book
	Err   error
}

// Request is one user search. Author is optional and narrows the upstream
// query with an inauthor term.
type Request struct {
	Text   string
	Author string
}

// CacheKey returns the normalized form the search cache is keyed on:
// trimmed, lowercased, with the author folded in when present so that
// author-narrowed searches never collide with plain ones.
func (r Request) CacheKey() string {
	key := strings.ToLower(strings.TrimSpace(r.Text))
	author := strings.ToLower(strings.TrimSpace(r.Author))
	if author != "" {
		key += " inauthor:" + author
	}
	return key
}

// Search resolves a user search, serving the cache when fresh and hitting
// upstream otherwise. A blank query yields an empty result.
func (p *Pipeline) Search(ctx context.Context, req Request) <-chan SearchResult {
	result := make(chan SearchResult, 1)
	p.enqueue(func() {
		books, err := p.runSearch(ctx, req)
		result <- SearchResult{Books: books, Err: err}
	})
	return result
}

func (p *Pipeline) runSearch(ctx context.Context, req Request) ([]book.Book, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, nil
	}
	key := req.CacheKey()

	fetchedAt, err := p.store.SearchCacheFetchedAt(key)
	if err != nil {
		return nil, err
	}
	if fetchedAt > 0 && !p.stale(fetchedAt, p.nowMillis()) {
		slog.Debug("Search cache hit", "query", key)
		return p.store.SearchCacheBooks(key)
	}

	target := searchTarget(key)
	if !p.begin(target) {
		// Another request is already refreshing this query.
		return p.store.SearchCacheBooks(key)
	}
	defer p.end(target)

	final, upstreamErr := p.searchUpstream(ctx, text, req.Author)

	if len(final) > 0 {
		now := p.nowMillis()
		ids := make([]string, len(final))
		for i := range final {
			final[i].FetchedAt = now
			if err := p.store.UpsertBook(final[i]); err != nil {
				return nil, err
			}
			ids[i] = final[i].ID
		}
		if err := p.store.ReplaceSearchCacheBooks(key, ids); err != nil {
			return nil, err
		}
		if err := p.store.SetSearchCacheFetchedAt(key, now); err != nil {
			return nil, err
		}
		return final, nil
	}

	// Nothing usable from upstream. Degrade to the stale cache; surface
	// the upstream error only when there is nothing to fall back on.
	cached, err := p.store.SearchCacheBooks(key)
	if err != nil {
		return nil, err
	}
	if len(cached) == 0 && upstreamErr != nil {
		return nil, upstreamErr
	}
	if upstreamErr != nil {
		slog.Warn("Search refresh failed, serving stale cache",
			"query", key, "error", upstreamErr)
	}
	return cached, nil
}

// searchUpstream fetches candidates, filters, ranks, enriches and
// truncates. The returned error is either a transport failure or an empty
// upstream result; the caller decides whether the cache can absorb it.
func (p *Pipeline) searchUpstream(ctx context.Context, text, author string) ([]book.Book, error) {
	candidates, err := p.fetchSearchCandidates(ctx, text, author)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NewEmptyResultError(text)
	}

	usable := make([]book.Book, 0, len(candidates))
	for _, c := range candidates {
		if quality.HasBasicFields(c) {
			usable = append(usable, c)
		}
	}

	ranked := quality.Rank(usable)
	complete := p.enrich(ctx, ranked, searchDetailBudget, searchTargetSize)
	final := quality.Rank(complete)
	if len(final) > searchTargetSize {
		final = final[:searchTargetSize]
	}
	return final, nil
}

// fetchSearchCandidates tries the title-scoped query first and falls back
// to a raw keyword query when it returns too few items. The fallback page
// replaces the primary page only when it actually has results.
func (p *Pipeline) fetchSearchCandidates(ctx context.Context, text, author string) ([]book.Book, error) {
	primaryQuery := query.BuildEnhancedQuery(text, author)
	primary, err := p.provider.Search(ctx, primaryQuery, 0)
	if err != nil {
		return nil, err
	}
	if len(primary) >= fallbackThreshold {
		return primary, nil
	}

	slog.Debug("Primary search thin, trying raw fallback",
		"query", primaryQuery, "results", len(primary))
	fallback, err := p.provider.Search(ctx, query.BuildFallbackQuery(text), 0)
	if err != nil {
		return nil, err
	}
	if len(fallback) > 0 {
		return fallback, nil
	}
	return primary, nil
}

// enrich walks ranked candidates in order, spending at most budget detail
// calls to fill in missing descriptions, and stops once target complete
// books are collected. A detail call counts against the budget whether or
// not it succeeds.
func (p *Pipeline) enrich(ctx context.Context, ranked []book.Book, budget, target int) []book.Book {
	complete := make([]book.Book, 0, target)
	calls := 0
	for _, candidate := range ranked {
		if len(complete) >= target {
			break
		}
		if !candidate.HasDescription() && calls < budget {
			calls++
			desc, err := p.provider.Details(ctx, candidate.ID)
			if err != nil {
				slog.Warn("Detail fetch failed", "book", candidate.ID, "error", err)
			} else if strings.TrimSpace(desc) != "" {
				candidate.Description = desc
			}
		}
		if quality.IsComplete(candidate) {
			complete = append(complete, candidate)
		}
	}
	return complete
}
