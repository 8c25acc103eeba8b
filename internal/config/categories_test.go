package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	categories := DefaultCategories()

	require.Len(t, categories, 4)
	assert.Equal(t, "Romance", categories[0].Name)
	assert.Equal(t, "subject:romance", categories[0].QueryHint)
	for _, cat := range categories {
		assert.Zero(t, cat.FetchedAt, "seed categories start never-fetched")
	}
}

func TestLoadCategoriesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := `- name: Horror
  query: "subject:horror"
- name: History
  query: "subject:history"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	categories, err := LoadCategoriesFile(path)

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Horror", categories[0].Name)
	assert.Equal(t, "subject:horror", categories[0].QueryHint)
	assert.Equal(t, "History", categories[1].Name)
}

func TestLoadCategoriesFileRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: NoQuery\n"), 0644))

	_, err := LoadCategoriesFile(path)

	assert.Error(t, err)
}

func TestLoadCategoriesFileMissing(t *testing.T) {
	_, err := LoadCategoriesFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
