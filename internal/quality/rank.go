package quality

import (
	"sort"

	"github.com/lepinkainen/bookdex/internal/book"
)

// Compare orders two books by quality, best first. Negative means a
// ranks ahead of b. Criteria, in order: ratings count (absent = 0),
// average rating (absent = 0), publication year when both sides parse
// (newer first), cover presence, real-author presence.
func Compare(a, b book.Book) int {
	if ar, br := a.Ratings(), b.Ratings(); ar != br {
		if ar > br {
			return -1
		}
		return 1
	}

	if ar, br := a.Rating(), b.Rating(); ar != br {
		if ar > br {
			return -1
		}
		return 1
	}

	// The year criterion is skipped, not treated as equal, when either
	// side is unparseable.
	ay, by := Year(a.PublishedDate), Year(b.PublishedDate)
	if ay != -1 && by != -1 && ay != by {
		if ay > by {
			return -1
		}
		return 1
	}

	if ac, bc := a.HasCover(), b.HasCover(); ac != bc {
		if ac {
			return -1
		}
		return 1
	}

	if aa, ba := a.HasAuthor(), b.HasAuthor(); aa != ba {
		if aa {
			return -1
		}
		return 1
	}

	return 0
}

// Rank returns a copy of books ordered best-first. The sort is stable:
// ties keep their incoming relative order.
func Rank(books []book.Book) []book.Book {
	ranked := make([]book.Book, len(books))
	copy(ranked, books)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Compare(ranked[i], ranked[j]) < 0
	})
	return ranked
}
