// Package quality decides which upstream candidates are worth keeping
// and in what order. It implements the two-stage completeness filter,
// the non-English heuristic and the ranking comparator used both before
// and after detail enrichment.
package quality

import (
	"strings"

	"github.com/lepinkainen/bookdex/internal/book"
)

// HasBasicFields is the cheap pre-enrichment gate: title, a real author
// and a cover URL must all be present. Candidates failing this are not
// worth a detail call.
func HasBasicFields(b book.Book) bool {
	if strings.TrimSpace(b.Title) == "" {
		return false
	}
	if !b.HasAuthor() {
		return false
	}
	return b.HasCover()
}

// IsComplete is the strict gate for final inclusion: basic fields plus a
// non-empty description.
func IsComplete(b book.Book) bool {
	return HasBasicFields(b) && b.HasDescription()
}

// IsEnglishText reports whether text looks like English. It rejects any
// text containing CJK ideographs, Hiragana, Katakana or Hangul syllables.
// Accented Latin characters pass; this is a heuristic, not script detection.
func IsEnglishText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
			return false
		case r >= 0x3040 && r <= 0x309F: // Hiragana
			return false
		case r >= 0x30A0 && r <= 0x30FF: // Katakana
			return false
		case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
			return false
		}
	}

	return true
}

// IsAdmissible applies HasBasicFields plus the language heuristic on both
// title and author. Used on the category refresh path, where the catalog
// is curated rather than user-driven.
func IsAdmissible(b book.Book) bool {
	if !HasBasicFields(b) {
		return false
	}
	if !IsEnglishText(b.Title) {
		return false
	}
	if strings.TrimSpace(b.Author) != "" && !IsEnglishText(b.Author) {
		return false
	}
	return true
}
