package quality

import (
	"strings"
	"time"
)

// dateLayouts are the partial-precision formats Google Books delivers.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// Year extracts the publication year from a published date string.
// Returns -1 when the string is empty or matches none of the layouts.
func Year(published string) int {
	trimmed := strings.TrimSpace(published)
	if trimmed == "" {
		return -1
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Year()
		}
	}

	return -1
}
