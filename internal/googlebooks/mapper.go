package googlebooks

import (
	"strings"

	"github.com/lepinkainen/bookdex/internal/book"
)

const unknownTitle = "Unknown Title"

// mapVolume converts one upstream volume into a catalog candidate.
func mapVolume(item volumeItem) book.Book {
	info := item.VolumeInfo

	title := info.Title
	if title == "" {
		title = unknownTitle
	}

	author := book.UnknownAuthor
	if len(info.Authors) > 0 {
		author = strings.Join(info.Authors, ", ")
	}

	// Prefer the larger thumbnail; upgrade plain-http covers before they
	// ever reach storage.
	coverURL := info.ImageLinks.Thumbnail
	if coverURL == "" {
		coverURL = info.ImageLinks.SmallThumbnail
	}
	if strings.HasPrefix(coverURL, "http://") {
		coverURL = "https://" + strings.TrimPrefix(coverURL, "http://")
	}

	return book.Book{
		ID:            item.ID,
		Title:         title,
		Author:        author,
		CoverURL:      coverURL,
		Description:   info.Description,
		PublishedDate: info.PublishedDate,
		RatingsCount:  info.RatingsCount,
		AverageRating: info.AverageRating,
	}
}

// mapVolumes converts a volume list, skipping items without an ID.
func mapVolumes(items []volumeItem) []book.Book {
	books := make([]book.Book, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		books = append(books, mapVolume(item))
	}
	return books
}
