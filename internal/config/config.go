package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// DefaultCacheTTL is the staleness window for categories and search
// entries alike: 7 days.
const DefaultCacheTTL = 168 * time.Hour

// Global configuration variables
var (
	// APIKey is the optional Google Books API key
	APIKey string
	// DBFile is the path to the catalog SQLite database
	DBFile string
	// CacheTTL is how long a cached refresh target stays fresh
	CacheTTL time.Duration
	// CoversDir is where downloaded cover images are stored
	CoversDir string
	// DownloadCovers controls whether refreshes also fetch cover images
	DownloadCovers bool
)

// InitConfig initializes the global configuration from viper.
func InitConfig() {
	viper.SetDefault("dbfile", "./bookdex.db")
	viper.SetDefault("cache.ttl", "168h")
	viper.SetDefault("covers.dir", "./covers")
	viper.SetDefault("covers.download", false)

	APIKey = viper.GetString("GoogleBooksAPIKey")
	DBFile = viper.GetString("dbfile")
	CoversDir = viper.GetString("covers.dir")
	DownloadCovers = viper.GetBool("covers.download")

	ttlStr := viper.GetString("cache.ttl")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		slog.Warn("Invalid cache TTL, using default", "ttl", ttlStr, "error", err)
		ttl = DefaultCacheTTL
	}
	CacheTTL = ttl
}

// SetDownloadCovers sets the DownloadCovers flag.
func SetDownloadCovers(download bool) {
	DownloadCovers = download
}

func viperCategoriesFile() string {
	return viper.GetString("categories.file")
}
