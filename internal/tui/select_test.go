package tui

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookdex/internal/book"
)

func testBook(id, title string) book.Book {
	ratings := 1500
	rating := 4.5
	return book.Book{
		ID:            id,
		Title:         title,
		Author:        "Frank Herbert",
		CoverURL:      "https://covers.example/" + id + ".jpg",
		Description:   "A desert planet and its spice.",
		PublishedDate: "1965-08-01",
		RatingsCount:  &ratings,
		AverageRating: &rating,
	}
}

func TestSelectEmptyListCancelsWithoutUI(t *testing.T) {
	started := false
	orig := runProgram
	runProgram = func(m tea.Model) (tea.Model, error) {
		started = true
		return m, nil
	}
	t.Cleanup(func() { runProgram = orig })

	result, err := Select("dune", nil)

	require.NoError(t, err)
	assert.Equal(t, ActionCancelled, result.Action)
	assert.False(t, started, "empty result list must not start the program")
}

func TestSelectReturnsChosenBook(t *testing.T) {
	orig := runProgram
	runProgram = func(m tea.Model) (tea.Model, error) {
		typed := m.(*model)
		updated, _ := typed.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return updated, nil
	}
	t.Cleanup(func() { runProgram = orig })

	result, err := Select("dune", []book.Book{testBook("v1", "Dune"), testBook("v2", "Dune Messiah")})

	require.NoError(t, err)
	require.Equal(t, ActionSelected, result.Action)
	require.NotNil(t, result.Selection)
	assert.Equal(t, "v1", result.Selection.ID, "first item is selected by default")
}

func TestSelectQuitCancels(t *testing.T) {
	orig := runProgram
	runProgram = func(m tea.Model) (tea.Model, error) {
		typed := m.(*model)
		updated, _ := typed.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		return updated, nil
	}
	t.Cleanup(func() { runProgram = orig })

	result, err := Select("dune", []book.Book{testBook("v1", "Dune")})

	require.NoError(t, err)
	assert.Equal(t, ActionCancelled, result.Action)
	assert.Nil(t, result.Selection)
}

func TestSelectPropagatesProgramError(t *testing.T) {
	orig := runProgram
	runProgram = func(m tea.Model) (tea.Model, error) {
		return nil, fmt.Errorf("terminal unavailable")
	}
	t.Cleanup(func() { runProgram = orig })

	_, err := Select("dune", []book.Book{testBook("v1", "Dune")})

	require.Error(t, err)
}

func TestBookItemTitleIncludesYear(t *testing.T) {
	item := bookItem{Book: testBook("v1", "Dune")}
	assert.Equal(t, "Dune (1965)", item.Title())

	noDate := testBook("v2", "Mystery")
	noDate.PublishedDate = "circa 1800"
	assert.Equal(t, "Mystery", bookItem{Book: noDate}.Title())
}

func TestFormatRatings(t *testing.T) {
	assert.Equal(t, "4.5/5 (1.5K ratings)", formatRatings(testBook("v1", "Dune")))

	few := testBook("v2", "Obscure")
	count := 12
	few.RatingsCount = &count
	assert.Equal(t, "4.5/5 (12 ratings)", formatRatings(few))

	none := book.Book{Title: "Bare"}
	assert.Equal(t, "No ratings", formatRatings(none))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "a long de...", truncate("a long description that keeps going", 12))
	assert.Equal(t, "squashed whitespace", truncate("squashed \n whitespace", 40))
}
