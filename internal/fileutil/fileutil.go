// Package fileutil holds small filesystem helpers shared by the cover
// downloader and the CLI.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename cleans a filename by replacing problematic characters
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, ":", " -")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// EnsureDir creates the directory and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(filepath.Clean(dir), 0755)
}
