package fileutil

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// coverMaxWidth caps stored covers; upstream thumbnails vary wildly in
// size and anything wider is scaled down before saving.
const coverMaxWidth = 320

// CoverDownloadOptions holds options for downloading a cover image.
type CoverDownloadOptions struct {
	// URL is the source URL of the cover image
	URL string
	// OutputDir is the directory where the cover will be saved
	OutputDir string
	// Filename is the name of the cover file (e.g., "Dune - abc123.jpg")
	Filename string
	// Refresh forces re-downloading even if the cover exists
	Refresh bool
}

// CoverDownloadResult holds the result of a cover download operation.
type CoverDownloadResult struct {
	// Downloaded indicates if a new file was written
	Downloaded bool
	// LocalPath is the full path to the cover on disk
	LocalPath string
	// Filename is just the filename
	Filename string
}

// DownloadCover fetches a cover image, scales it down to at most
// coverMaxWidth and saves it under OutputDir. It skips the download when
// the file already exists and Refresh is false. An empty URL is a no-op.
func DownloadCover(opts CoverDownloadOptions) (*CoverDownloadResult, error) {
	if opts.URL == "" {
		return nil, nil
	}

	if err := EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	localPath := filepath.Join(opts.OutputDir, opts.Filename)
	result := &CoverDownloadResult{
		LocalPath: localPath,
		Filename:  opts.Filename,
	}

	if FileExists(localPath) && !opts.Refresh {
		slog.Debug("Cover already exists, skipping download", "path", localPath)
		return result, nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover from %s", resp.StatusCode, opts.URL)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}
	if img.Bounds().Dx() > coverMaxWidth {
		img = imaging.Resize(img, coverMaxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, localPath); err != nil {
		return nil, fmt.Errorf("failed to save cover file: %w", err)
	}

	slog.Info("Downloaded cover", "path", localPath)
	result.Downloaded = true
	return result, nil
}

// BuildCoverFilename creates a stable cover filename from a book title
// and ID. The ID keeps distinct editions with the same title apart.
func BuildCoverFilename(title, bookID string) string {
	return SanitizeFilename(title) + " - " + bookID + ".jpg"
}
