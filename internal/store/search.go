package store

import (
	"database/sql"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
)

// SearchCacheBooks returns the cached result list for a normalized query,
// ordered by stored sort order. An unknown query yields an empty list.
func (s *Store) SearchCacheBooks(normalizedQuery string) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books, err := s.orderedBooks("search_cache_books", "query", normalizedQuery)
	if err != nil {
		return nil, errors.NewStorageError("get search cache books", err)
	}
	return books, nil
}

// ReplaceSearchCacheBooks atomically rewrites the query's ordered book
// association, creating the cache entry row if it does not exist yet.
func (s *Store) ReplaceSearchCacheBooks(normalizedQuery string, orderedBookIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO search_cache (query, fetched_at) VALUES (?, 0)`,
		normalizedQuery,
	)
	if err != nil {
		return errors.NewStorageError("create search cache entry", err)
	}

	if err := s.replaceAssociations("search_cache_books", "query", normalizedQuery, orderedBookIDs); err != nil {
		return errors.NewStorageError("replace search cache books", err)
	}
	return nil
}

// SearchCacheFetchedAt returns the query's last refresh timestamp in epoch
// millis, 0 when the query has never been cached.
func (s *Store) SearchCacheFetchedAt(normalizedQuery string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fetchedAt int64
	err := s.db.QueryRow(
		`SELECT fetched_at FROM search_cache WHERE query = ?`, normalizedQuery,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewStorageError("get search cache fetched_at", err)
	}
	return fetchedAt, nil
}

// SetSearchCacheFetchedAt records a successful refresh timestamp for the
// query, creating the cache entry row when needed.
func (s *Store) SetSearchCacheFetchedAt(normalizedQuery string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO search_cache (query, fetched_at) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET fetched_at = excluded.fetched_at
	`, normalizedQuery, ts)
	if err != nil {
		return errors.NewStorageError("set search cache fetched_at", err)
	}
	return nil
}

// ClearSearchCache drops every cached search entry and its associations.
// Book rows are kept.
func (s *Store) ClearSearchCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM search_cache_books`); err != nil {
		return errors.NewStorageError("clear search cache books", err)
	}
	if _, err := s.db.Exec(`DELETE FROM search_cache`); err != nil {
		return errors.NewStorageError("clear search cache", err)
	}
	return nil
}
