// Package book holds the catalog domain types shared by the store,
// the Google Books provider and the acquisition pipeline.
package book

import "strings"

// UnknownAuthor is the sentinel the upstream mapper uses when a volume
// carries no author information. It is treated as "no author" everywhere.
const UnknownAuthor = "Unknown Author"

// Book is a single catalog record, keyed by the upstream volume ID.
// RatingsCount and AverageRating are pointers so that "absent" survives
// the round trip through the API and the database.
type Book struct {
	ID            string
	Title         string
	Author        string
	CoverURL      string
	Description   string
	PublishedDate string
	RatingsCount  *int
	AverageRating *float64

	// FetchedAt is the epoch-millis timestamp of the last content write.
	FetchedAt int64
	// LastOpenedAt is updated on every read-for-display, 0 = never.
	LastOpenedAt int64
}

// HasAuthor reports whether the book has a real author, i.e. a non-blank
// value that is not the UnknownAuthor sentinel.
func (b Book) HasAuthor() bool {
	author := strings.TrimSpace(b.Author)
	return author != "" && author != UnknownAuthor
}

// HasCover reports whether the book carries a cover URL.
func (b Book) HasCover() bool {
	return strings.TrimSpace(b.CoverURL) != ""
}

// HasDescription reports whether the book carries a non-blank description.
func (b Book) HasDescription() bool {
	return strings.TrimSpace(b.Description) != ""
}

// Ratings returns the ratings count with absent treated as 0.
func (b Book) Ratings() int {
	if b.RatingsCount == nil {
		return 0
	}
	return *b.RatingsCount
}

// Rating returns the average rating with absent treated as 0.0.
func (b Book) Rating() float64 {
	if b.AverageRating == nil {
		return 0
	}
	return *b.AverageRating
}

// Category is a curated home-screen shelf. QueryHint is the upstream
// query fragment (e.g. "subject:romance") used to refresh it.
type Category struct {
	ID        int64
	Name      string
	QueryHint string
	// FetchedAt is the epoch-millis timestamp of the last successful
	// refresh, 0 = never fetched.
	FetchedAt int64
	Books     []Book
}
