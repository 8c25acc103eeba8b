// Package query builds Google Books search expressions. All upstream
// calls share the same fixed defaults; the only variation is the query
// string itself.
package query

import "strings"

// Defaults applied to every upstream call.
const (
	DefaultLang       = "en"
	DefaultCountry    = "US"
	DefaultMaxResults = 40
	DefaultPrintType  = "books"
	DefaultOrderBy    = "relevance"
)

// BuildCategoryQuery returns the category's query hint verbatim, trimmed.
// An empty hint yields an empty query; callers must treat that as a no-op
// refresh.
func BuildCategoryQuery(hint string) string {
	return strings.TrimSpace(hint)
}

// BuildPrimaryQuery wraps the user's text in a strict title-scoped
// operator: intitle:"<text>". Quotes in the input are escaped.
func BuildPrimaryQuery(userText string) string {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return ""
	}
	return `intitle:"` + escapeQuotes(trimmed) + `"`
}

// BuildEnhancedQuery is BuildPrimaryQuery with an additional author
// restriction when one is provided.
func BuildEnhancedQuery(userText, author string) string {
	primary := BuildPrimaryQuery(userText)
	if primary == "" {
		return ""
	}

	authorTrimmed := strings.TrimSpace(author)
	if authorTrimmed == "" {
		return primary
	}
	return primary + ` inauthor:"` + escapeQuotes(authorTrimmed) + `"`
}

// BuildFallbackQuery returns the raw trimmed text, unrestricted. Used only
// when the primary query under-returns.
func BuildFallbackQuery(userText string) string {
	return strings.TrimSpace(userText)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
