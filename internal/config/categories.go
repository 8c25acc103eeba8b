package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/bookdex/internal/book"
)

// categorySeed is the YAML shape of one entry in a categories file.
type categorySeed struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// DefaultCategories returns the bootstrap category list used when the
// catalog has never been seeded and no categories file is configured.
func DefaultCategories() []book.Category {
	return []book.Category{
		{Name: "Romance", QueryHint: "subject:romance"},
		{Name: "Science Fiction", QueryHint: "subject:science fiction"},
		{Name: "Non-fiction", QueryHint: "subject:nonfiction"},
		{Name: "Self Development", QueryHint: "subject:self-help"},
	}
}

// LoadCategoriesFile reads a YAML category seed list:
//
//	- name: Romance
//	  query: "subject:romance"
//
// Entries with an empty name or query are rejected.
func LoadCategoriesFile(path string) ([]book.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var seeds []categorySeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}

	categories := make([]book.Category, 0, len(seeds))
	for i, seed := range seeds {
		if seed.Name == "" || seed.Query == "" {
			return nil, fmt.Errorf("categories file entry %d is missing name or query", i)
		}
		categories = append(categories, book.Category{
			Name:      seed.Name,
			QueryHint: seed.Query,
		})
	}

	return categories, nil
}

// SeedCategories resolves the category seed list: the configured
// categories file when present, the built-in defaults otherwise.
func SeedCategories() ([]book.Category, error) {
	path := viperCategoriesFile()
	if path == "" {
		return DefaultCategories(), nil
	}
	return LoadCategoriesFile(path)
}
