package store

// SQL schemas for the catalog tables. Books are canonical records keyed by
// the upstream volume ID; categories and search entries own ordered,
// fully-replaced associations into them.

// BooksSchema holds canonical book records. Rows are only ever inserted or
// fully replaced, never deleted.
const BooksSchema = `
CREATE TABLE IF NOT EXISTS books (
	book_id TEXT PRIMARY KEY NOT NULL,
	title TEXT NOT NULL,
	author TEXT,
	cover_url TEXT,
	description TEXT,
	published_date TEXT,
	ratings_count INTEGER,
	average_rating REAL,
	fetched_at INTEGER NOT NULL DEFAULT 0,
	last_opened_at INTEGER NOT NULL DEFAULT 0
);
`

// CategoriesSchema holds the curated home shelves.
const CategoriesSchema = `
CREATE TABLE IF NOT EXISTS categories (
	category_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	query_hint TEXT NOT NULL,
	fetched_at INTEGER NOT NULL DEFAULT 0
);
`

// CategoryBooksSchema is the ordered category -> book association,
// rewritten in full on every refresh.
const CategoryBooksSchema = `
CREATE TABLE IF NOT EXISTS category_books (
	category_id INTEGER NOT NULL,
	book_id TEXT NOT NULL,
	sort_order INTEGER NOT NULL,
	PRIMARY KEY (category_id, book_id)
);

CREATE INDEX IF NOT EXISTS idx_category_books_order ON category_books(category_id, sort_order);
`

// SearchCacheSchema tracks per-query fetch timestamps, keyed by the
// normalized query string.
const SearchCacheSchema = `
CREATE TABLE IF NOT EXISTS search_cache (
	query TEXT PRIMARY KEY NOT NULL,
	fetched_at INTEGER NOT NULL DEFAULT 0
);
`

// SearchCacheBooksSchema is the ordered query -> book association,
// rewritten in full on every refresh.
const SearchCacheBooksSchema = `
CREATE TABLE IF NOT EXISTS search_cache_books (
	query TEXT NOT NULL,
	book_id TEXT NOT NULL,
	sort_order INTEGER NOT NULL,
	PRIMARY KEY (query, book_id)
);

CREATE INDEX IF NOT EXISTS idx_search_cache_books_order ON search_cache_books(query, sort_order);
`

// AllSchemas contains every catalog table schema for initialization.
var AllSchemas = []string{
	BooksSchema,
	CategoriesSchema,
	CategoryBooksSchema,
	SearchCacheSchema,
	SearchCacheBooksSchema,
}
