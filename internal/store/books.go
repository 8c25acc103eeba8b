package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (book.Book, error) {
	var b book.Book
	var author, coverURL, description, publishedDate sql.NullString
	var ratingsCount sql.NullInt64
	var averageRating sql.NullFloat64

	err := row.Scan(
		&b.ID, &b.Title, &author, &coverURL, &description,
		&publishedDate, &ratingsCount, &averageRating,
		&b.FetchedAt, &b.LastOpenedAt,
	)
	if err != nil {
		return book.Book{}, err
	}

	b.Author = author.String
	b.CoverURL = coverURL.String
	b.Description = description.String
	b.PublishedDate = publishedDate.String
	if ratingsCount.Valid {
		count := int(ratingsCount.Int64)
		b.RatingsCount = &count
	}
	if averageRating.Valid {
		rating := averageRating.Float64
		b.AverageRating = &rating
	}

	return b, nil
}

// UpsertBook inserts or fully replaces a book record by its ID. A record
// with a blank title is never persisted.
func (s *Store) UpsertBook(b book.Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return errors.NewStorageError("upsert book", fmt.Errorf("book %s has an empty title", b.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ratingsCount any
	if b.RatingsCount != nil {
		ratingsCount = *b.RatingsCount
	}
	var averageRating any
	if b.AverageRating != nil {
		averageRating = *b.AverageRating
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO books
			(book_id, title, author, cover_url, description,
			 published_date, ratings_count, average_rating,
			 fetched_at, last_opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT last_opened_at FROM books WHERE book_id = ?), 0))
	`, b.ID, b.Title, b.Author, b.CoverURL, b.Description,
		b.PublishedDate, ratingsCount, averageRating, b.FetchedAt, b.ID)
	if err != nil {
		return errors.NewStorageError("upsert book", err)
	}

	return nil
}

// GetBook returns the book with the given ID, or nil when absent.
func (s *Store) GetBook(bookID string) (*book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT book_id, title, author, cover_url, description,
		       published_date, ratings_count, average_rating,
		       fetched_at, last_opened_at
		FROM books
		WHERE book_id = ?
	`, bookID)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("get book", err)
	}
	return &b, nil
}

// TouchLastOpened records a read-for-display at the given epoch-millis
// timestamp. A missing book ID is a no-op, not an error.
func (s *Store) TouchLastOpened(bookID string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE books SET last_opened_at = ? WHERE book_id = ?`, ts, bookID)
	if err != nil {
		return errors.NewStorageError("touch last opened", err)
	}
	return nil
}
