package store

import (
	"database/sql"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
)

// SeedCategories inserts the given categories when the table is empty.
// An already-seeded catalog is left untouched.
func (s *Store) SeedCategories(categories []book.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return errors.NewStorageError("count categories", err)
	}
	if count > 0 {
		return nil
	}

	for _, cat := range categories {
		_, err := s.db.Exec(
			`INSERT INTO categories (name, query_hint, fetched_at) VALUES (?, ?, 0)`,
			cat.Name, cat.QueryHint,
		)
		if err != nil {
			return errors.NewStorageError("seed categories", err)
		}
	}

	return nil
}

// Categories returns all categories ordered by ID, without their books.
func (s *Store) Categories() ([]book.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT category_id, name, query_hint, fetched_at FROM categories ORDER BY category_id ASC`,
	)
	if err != nil {
		return nil, errors.NewStorageError("list categories", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []book.Category
	for rows.Next() {
		var cat book.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.QueryHint, &cat.FetchedAt); err != nil {
			return nil, errors.NewStorageError("scan category", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list categories", err)
	}

	return categories, nil
}

// CategoryBooks returns the category's books ordered by stored sort order.
func (s *Store) CategoryBooks(categoryID int64) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books, err := s.orderedBooks("category_books", "category_id", categoryID)
	if err != nil {
		return nil, errors.NewStorageError("get category books", err)
	}
	return books, nil
}

// ReplaceCategoryBooks atomically rewrites the category's ordered book
// association: sort_order is the index in orderedBookIDs.
func (s *Store) ReplaceCategoryBooks(categoryID int64, orderedBookIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replaceAssociations("category_books", "category_id", categoryID, orderedBookIDs); err != nil {
		return errors.NewStorageError("replace category books", err)
	}
	return nil
}

// CategoryFetchedAt returns the category's last refresh timestamp in epoch
// millis, 0 when the category is unknown or never fetched.
func (s *Store) CategoryFetchedAt(categoryID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fetchedAt int64
	err := s.db.QueryRow(
		`SELECT fetched_at FROM categories WHERE category_id = ?`, categoryID,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewStorageError("get category fetched_at", err)
	}
	return fetchedAt, nil
}

// SetCategoryFetchedAt records a successful refresh timestamp.
func (s *Store) SetCategoryFetchedAt(categoryID int64, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE categories SET fetched_at = ? WHERE category_id = ?`, ts, categoryID,
	)
	if err != nil {
		return errors.NewStorageError("set category fetched_at", err)
	}
	return nil
}

// ClearCategoryCache drops every category association and resets the
// fetch timestamps. Book rows are kept.
func (s *Store) ClearCategoryCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM category_books`); err != nil {
		return errors.NewStorageError("clear category books", err)
	}
	if _, err := s.db.Exec(`UPDATE categories SET fetched_at = 0`); err != nil {
		return errors.NewStorageError("reset category fetched_at", err)
	}
	return nil
}
