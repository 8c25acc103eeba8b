package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/quality"
)

var (
	shelfTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	bookTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	detailBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1).
				Width(76)
)

// RenderShelves renders the home view: one block per category with its
// ranked books, or a placeholder line for an empty shelf.
func RenderShelves(categories []book.Category) string {
	var sections []string
	for _, cat := range categories {
		header := shelfTitleStyle.Render(cat.Name)
		if len(cat.Books) == 0 {
			sections = append(sections, header+"\n"+mutedStyle.Render("  no books cached"))
			continue
		}

		lines := make([]string, 0, len(cat.Books))
		for i, b := range cat.Books {
			lines = append(lines, renderBookLine(i+1, b))
		}
		sections = append(sections, header+"\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// RenderSearchResults renders a ranked result list for one query.
func RenderSearchResults(query string, books []book.Book) string {
	header := shelfTitleStyle.Render(fmt.Sprintf("Results for %q", query))
	if len(books) == 0 {
		return header + "\n" + mutedStyle.Render("  no results")
	}

	lines := make([]string, 0, len(books))
	for i, b := range books {
		lines = append(lines, renderBookLine(i+1, b))
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// RenderBook renders the detail card shown by the open command.
func RenderBook(b book.Book) string {
	title := b.Title
	if year := quality.Year(b.PublishedDate); year > 0 {
		title = fmt.Sprintf("%s (%d)", b.Title, year)
	}

	lines := []string{
		bookTitleStyle.Render(title),
		b.Author,
		formatRatings(b),
		"",
		wrap(b.Description, 74),
	}
	return detailBorderStyle.Render(strings.Join(lines, "\n"))
}

func renderBookLine(position int, b book.Book) string {
	line := fmt.Sprintf("  %2d. %s %s", position,
		bookTitleStyle.Render(b.Title),
		mutedStyle.Render("by "+b.Author))
	if b.AverageRating != nil {
		line += mutedStyle.Render(fmt.Sprintf(" [%s]", formatRatings(b)))
	}
	return line
}

func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 {
			if lineLen+1+len(word) > width {
				sb.WriteByte('\n')
				lineLen = 0
			} else {
				sb.WriteByte(' ')
				lineLen++
			}
		}
		sb.WriteString(word)
		lineLen += len(word)
	}
	return sb.String()
}
