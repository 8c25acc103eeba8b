// Package store is the SQLite-backed catalog: canonical book records plus
// the ordered category and search-cache associations the acquisition
// pipeline reads and rewrites.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
)

// Store manages the catalog database connection. All mutations for a given
// refresh target flow through single transactions, so readers never observe
// a half-replaced association list.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open opens (creating if necessary) the catalog database at dbPath and
// ensures all tables exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.NewStorageError("open catalog database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("connect to catalog database", err)
	}

	s := &Store{db: db, path: dbPath}
	for _, schema := range AllSchemas {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return nil, errors.NewStorageError("create catalog table", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// replaceAssociations deletes every row matching owner in table and inserts
// the new ordered ids, all inside one transaction so concurrent readers see
// either the old list or the new one, never an empty window.
func (s *Store) replaceAssociations(table, ownerColumn string, owner any, orderedBookIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, ownerColumn)
	if _, err := tx.Exec(deleteQuery, owner); err != nil {
		return fmt.Errorf("failed to clear associations: %w", err)
	}

	insertQuery := fmt.Sprintf(
		"INSERT INTO %s (%s, book_id, sort_order) VALUES (?, ?, ?)",
		table, ownerColumn,
	)
	stmt, err := tx.Prepare(insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, bookID := range orderedBookIDs {
		if _, err := stmt.Exec(owner, bookID, i); err != nil {
			return fmt.Errorf("failed to insert association: %w", err)
		}
	}

	return tx.Commit()
}

// orderedBooks reads the books associated with owner in table, ordered by
// sort_order ascending.
func (s *Store) orderedBooks(table, ownerColumn string, owner any) ([]book.Book, error) {
	query := fmt.Sprintf(`
		SELECT b.book_id, b.title, b.author, b.cover_url, b.description,
		       b.published_date, b.ratings_count, b.average_rating,
		       b.fetched_at, b.last_opened_at
		FROM %s a
		JOIN books b ON b.book_id = a.book_id
		WHERE a.%s = ?
		ORDER BY a.sort_order ASC
	`, table, ownerColumn)

	rows, err := s.db.Query(query, owner)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var books []book.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
