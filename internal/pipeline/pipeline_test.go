package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
	"github.com/lepinkainen/bookdex/internal/store"
)

// fakeProvider scripts upstream behavior per query and records calls.
type fakeProvider struct {
	mu       sync.Mutex
	searchFn func(query string, startIndex int) ([]book.Book, error)
	detailFn func(volumeID string) (string, error)
	searches []string
	details  []string
}

func (f *fakeProvider) Search(_ context.Context, query string, startIndex int) ([]book.Book, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(query, startIndex)
}

func (f *fakeProvider) Details(_ context.Context, volumeID string) (string, error) {
	f.mu.Lock()
	f.details = append(f.details, volumeID)
	f.mu.Unlock()
	if f.detailFn == nil {
		return "", nil
	}
	return f.detailFn(volumeID)
}

func (f *fakeProvider) searchCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeProvider) detailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.details)
}

// completeBook builds a candidate that passes the strict completeness
// check out of the box.
func completeBook(id string, ratings int) book.Book {
	rating := 4.0
	return book.Book{
		ID:            id,
		Title:         "Title " + id,
		Author:        "Author " + id,
		CoverURL:      "https://covers.example/" + id + ".jpg",
		Description:   "Description for " + id,
		PublishedDate: "2020-01-01",
		RatingsCount:  &ratings,
		AverageRating: &rating,
	}
}

func newTestPipeline(t *testing.T, provider Provider, now time.Time) (*Pipeline, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bookdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	p := New(st, provider, Config{Now: func() time.Time { return now }})
	t.Cleanup(p.Close)
	return p, st
}

func seedOneCategory(t *testing.T, st *store.Store) book.Category {
	t.Helper()

	require.NoError(t, st.SeedCategories([]book.Category{
		{Name: "Science Fiction", QueryHint: "subject:science fiction"},
	}))
	categories, err := st.Categories()
	require.NoError(t, err)
	require.Len(t, categories, 1)
	return categories[0]
}

func TestHomeRefreshesEmptyShelfAndDeliversTwice(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return []book.Book{completeBook("v1", 50), completeBook("v2", 10)}, nil
		},
	}
	p, st := newTestPipeline(t, provider, time.Now())
	seedOneCategory(t, st)

	updates := p.Home(context.Background())

	first := <-updates
	require.NoError(t, first.Err)
	require.Len(t, first.Categories, 1)
	assert.Empty(t, first.Categories[0].Books, "first delivery is the bare cache")
	assert.False(t, first.Refreshed)

	second, ok := <-updates
	require.True(t, ok, "empty shelf must trigger a second delivery")
	require.NoError(t, second.Err)
	require.Len(t, second.Categories[0].Books, 2)
	assert.Equal(t, "v1", second.Categories[0].Books[0].ID, "higher ratings count ranks first")
	assert.True(t, second.Refreshed)

	_, open := <-updates
	assert.False(t, open, "channel closes after the final delivery")
}

func TestHomeFreshShelfMakesNoUpstreamCalls(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return []book.Book{completeBook("v1", 50)}, nil
		},
	}
	p, st := newTestPipeline(t, provider, now)
	cat := seedOneCategory(t, st)

	// Populate the shelf and stamp it fresh.
	b := completeBook("v1", 50)
	require.NoError(t, st.UpsertBook(b))
	require.NoError(t, st.ReplaceCategoryBooks(cat.ID, []string{"v1"}))
	require.NoError(t, st.SetCategoryFetchedAt(cat.ID, now.UnixMilli()))

	updates := p.Home(context.Background())
	first := <-updates
	require.NoError(t, first.Err)
	require.Len(t, first.Categories[0].Books, 1)

	_, open := <-updates
	assert.False(t, open, "fresh shelf needs no second delivery")
	assert.Empty(t, provider.searchCalls())
}

func TestRefreshAllEmptyUpstreamKeepsShelf(t *testing.T) {
	provider := &fakeProvider{} // every search returns zero items
	p, st := newTestPipeline(t, provider, time.Now())
	cat := seedOneCategory(t, st)

	require.NoError(t, st.UpsertBook(completeBook("v1", 50)))
	require.NoError(t, st.ReplaceCategoryBooks(cat.ID, []string{"v1"}))

	require.NoError(t, <-p.RefreshAll(context.Background()))

	books, err := st.CategoryBooks(cat.ID)
	require.NoError(t, err)
	assert.Len(t, books, 1, "empty upstream result must not erase the shelf")

	fetchedAt, err := st.CategoryFetchedAt(cat.ID)
	require.NoError(t, err)
	assert.Zero(t, fetchedAt, "a refresh that yields nothing does not advance fetched_at")
}

func TestRefreshAllTransportFailureKeepsShelf(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return nil, errors.NewTransportError("search volumes", fmt.Errorf("boom"))
		},
	}
	p, st := newTestPipeline(t, provider, time.Now())
	cat := seedOneCategory(t, st)

	require.NoError(t, st.UpsertBook(completeBook("v1", 50)))
	require.NoError(t, st.ReplaceCategoryBooks(cat.ID, []string{"v1"}))

	require.NoError(t, <-p.RefreshAll(context.Background()), "upstream failure is absorbed")

	books, err := st.CategoryBooks(cat.ID)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestRefreshTruncatesShelfToTarget(t *testing.T) {
	many := make([]book.Book, 0, 18)
	for i := 0; i < 18; i++ {
		many = append(many, completeBook(fmt.Sprintf("v%02d", i), 100-i))
	}
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			if startIndex > 0 {
				return nil, nil
			}
			return many, nil
		},
	}
	p, st := newTestPipeline(t, provider, time.Now())
	cat := seedOneCategory(t, st)

	require.NoError(t, <-p.RefreshAll(context.Background()))

	books, err := st.CategoryBooks(cat.ID)
	require.NoError(t, err)
	require.Len(t, books, categoryTargetSize)
	assert.Equal(t, "v00", books[0].ID)
	assert.Equal(t, "v11", books[len(books)-1].ID)
}

func TestRefreshEnrichesMissingDescriptions(t *testing.T) {
	bare := completeBook("v1", 50)
	bare.Description = ""
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			if startIndex > 0 {
				return nil, nil
			}
			return []book.Book{bare}, nil
		},
		detailFn: func(volumeID string) (string, error) {
			return "Fetched description.", nil
		},
	}
	p, st := newTestPipeline(t, provider, time.Now())
	cat := seedOneCategory(t, st)

	require.NoError(t, <-p.RefreshAll(context.Background()))

	books, err := st.CategoryBooks(cat.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Fetched description.", books[0].Description)
	assert.Equal(t, 1, provider.detailCalls())
}

func TestRefreshExcludesBooksStillIncompleteAfterBudget(t *testing.T) {
	bare := completeBook("v1", 50)
	bare.Description = ""
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			if startIndex > 0 {
				return nil, nil
			}
			return []book.Book{bare, completeBook("v2", 10)}, nil
		},
		detailFn: func(volumeID string) (string, error) {
			return "", errors.NewTransportError("volume details", fmt.Errorf("boom"))
		},
	}
	p, st := newTestPipeline(t, provider, time.Now())
	cat := seedOneCategory(t, st)

	require.NoError(t, <-p.RefreshAll(context.Background()))

	books, err := st.CategoryBooks(cat.ID)
	require.NoError(t, err)
	require.Len(t, books, 1, "book without description stays out of the shelf")
	assert.Equal(t, "v2", books[0].ID)
}

func TestSearchPrimaryQueryServesAndCaches(t *testing.T) {
	results := make([]book.Book, 0, fallbackThreshold)
	for i := 0; i < fallbackThreshold; i++ {
		results = append(results, completeBook(fmt.Sprintf("s%02d", i), 50-i))
	}
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return results, nil
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	first := <-p.Search(context.Background(), Request{Text: "Dune"})
	require.NoError(t, first.Err)
	require.Len(t, first.Books, fallbackThreshold)

	calls := provider.searchCalls()
	require.Equal(t, []string{`intitle:"Dune"`}, calls, "enough primary results skip the fallback")

	// Second identical search within the TTL is served from cache.
	second := <-p.Search(context.Background(), Request{Text: " dune "})
	require.NoError(t, second.Err)
	assert.Len(t, second.Books, fallbackThreshold)
	assert.Len(t, provider.searchCalls(), 1, "normalized repeat hits the cache")
}

func TestSearchThinPrimaryFallsBackToRawQuery(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			if strings.HasPrefix(query, "intitle:") {
				return []book.Book{completeBook("p1", 5)}, nil
			}
			return []book.Book{completeBook("f1", 90), completeBook("f2", 80)}, nil
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "dune"})

	require.NoError(t, result.Err)
	require.Len(t, result.Books, 2)
	assert.Equal(t, "f1", result.Books[0].ID)
	assert.Equal(t, []string{`intitle:"dune"`, "dune"}, provider.searchCalls())
}

func TestSearchEmptyFallbackKeepsPrimaryResults(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			if strings.HasPrefix(query, "intitle:") {
				return []book.Book{completeBook("p1", 5)}, nil
			}
			return nil, nil
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "obscure title"})

	require.NoError(t, result.Err)
	require.Len(t, result.Books, 1)
	assert.Equal(t, "p1", result.Books[0].ID)
}

func TestSearchAuthorNarrowsQueryAndCacheKey(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			books := make([]book.Book, 0, fallbackThreshold)
			for i := 0; i < fallbackThreshold; i++ {
				books = append(books, completeBook(fmt.Sprintf("a%02d", i), 10))
			}
			return books, nil
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "Dune", Author: "Herbert"})
	require.NoError(t, result.Err)

	calls := provider.searchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, `intitle:"Dune" inauthor:"Herbert"`, calls[0])

	// A plain search for the same text is a different cache entry and goes
	// upstream again.
	plain := <-p.Search(context.Background(), Request{Text: "Dune"})
	require.NoError(t, plain.Err)
	assert.Len(t, provider.searchCalls(), 2)
}

func TestSearchTransportFailureServesStaleCache(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return nil, errors.NewTransportError("search volumes", fmt.Errorf("offline"))
		},
	}
	p, st := newTestPipeline(t, provider, now)

	stale := now.Add(-8 * 24 * time.Hour).UnixMilli()
	require.NoError(t, st.UpsertBook(completeBook("old1", 50)))
	require.NoError(t, st.ReplaceSearchCacheBooks("dune", []string{"old1"}))
	require.NoError(t, st.SetSearchCacheFetchedAt("dune", stale))

	result := <-p.Search(context.Background(), Request{Text: "Dune"})

	require.NoError(t, result.Err, "stale cache absorbs the transport failure")
	require.Len(t, result.Books, 1)
	assert.Equal(t, "old1", result.Books[0].ID)
}

func TestSearchTransportFailureWithoutCacheSurfacesError(t *testing.T) {
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return nil, errors.NewTransportError("search volumes", fmt.Errorf("offline"))
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "Dune"})

	require.Error(t, result.Err)
	assert.True(t, errors.IsTransportError(result.Err))
	assert.Empty(t, result.Books)
}

func TestSearchEmptyUpstreamWithoutCacheSurfacesEmptyResult(t *testing.T) {
	provider := &fakeProvider{} // zero items everywhere
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "no such book"})

	require.Error(t, result.Err)
	assert.True(t, errors.IsEmptyResultError(result.Err))
}

func TestSearchEmptyUpstreamKeepsExistingCacheEntry(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{}
	p, st := newTestPipeline(t, provider, now)

	stale := now.Add(-8 * 24 * time.Hour).UnixMilli()
	require.NoError(t, st.UpsertBook(completeBook("old1", 50)))
	require.NoError(t, st.ReplaceSearchCacheBooks("dune", []string{"old1"}))
	require.NoError(t, st.SetSearchCacheFetchedAt("dune", stale))

	result := <-p.Search(context.Background(), Request{Text: "Dune"})

	require.NoError(t, result.Err)
	require.Len(t, result.Books, 1, "empty refresh must not wipe the cached entry")

	cached, err := st.SearchCacheBooks("dune")
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestSearchBlankQueryIsNoOp(t *testing.T) {
	provider := &fakeProvider{}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "   "})

	require.NoError(t, result.Err)
	assert.Empty(t, result.Books)
	assert.Empty(t, provider.searchCalls())
}

func TestSearchDetailBudgetCountsFailedCalls(t *testing.T) {
	// More description-less candidates than the budget allows.
	many := make([]book.Book, 0, searchDetailBudget+10)
	for i := 0; i < searchDetailBudget+10; i++ {
		b := completeBook(fmt.Sprintf("v%02d", i), 100-i)
		b.Description = ""
		many = append(many, b)
	}
	provider := &fakeProvider{
		searchFn: func(query string, startIndex int) ([]book.Book, error) {
			return many, nil
		},
		detailFn: func(volumeID string) (string, error) {
			return "", errors.NewTransportError("volume details", fmt.Errorf("boom"))
		},
	}
	p, _ := newTestPipeline(t, provider, time.Now())

	result := <-p.Search(context.Background(), Request{Text: "dune"})

	require.NoError(t, result.Err)
	assert.Empty(t, result.Books, "nothing completes when every detail call fails")
	assert.Equal(t, searchDetailBudget, provider.detailCalls())
}

func TestOpenRecordsLastOpened(t *testing.T) {
	now := time.Now()
	p, st := newTestPipeline(t, &fakeProvider{}, now)
	require.NoError(t, st.UpsertBook(completeBook("v1", 50)))

	result := <-p.Open(context.Background(), "v1")

	require.NoError(t, result.Err)
	require.NotNil(t, result.Book)
	assert.Equal(t, now.UnixMilli(), result.Book.LastOpenedAt)

	stored, err := st.GetBook("v1")
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), stored.LastOpenedAt)
}

func TestOpenUnknownBookReturnsNil(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeProvider{}, time.Now())

	result := <-p.Open(context.Background(), "missing")

	require.NoError(t, result.Err)
	assert.Nil(t, result.Book)
}
