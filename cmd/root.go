package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/config"
	"github.com/lepinkainen/bookdex/internal/fileutil"
	"github.com/lepinkainen/bookdex/internal/googlebooks"
	"github.com/lepinkainen/bookdex/internal/pipeline"
	"github.com/lepinkainen/bookdex/internal/store"
	"github.com/lepinkainen/bookdex/internal/tui"
)

// CLI represents the complete command structure for the bookdex application
type CLI struct {
	// Global flags
	DBFile         string `help:"Path to catalog SQLite database file" default:"./bookdex.db"`
	CacheTTL       string `help:"Cache time-to-live duration (e.g., 168h for 7 days)" default:"168h"`
	DownloadCovers bool   `help:"Download cover images for the books shown"`
	CoversDir      string `help:"Directory for downloaded cover images" default:"./covers"`

	Home    HomeCmd    `cmd:"" help:"Show category shelves, refreshing stale ones"`
	Refresh RefreshCmd `cmd:"" help:"Force-refresh every category shelf"`
	Search  SearchCmd  `cmd:"" help:"Search for books"`
	Open    OpenCmd    `cmd:"" help:"Show one stored book and mark it opened"`
	Cache   CacheCmd   `cmd:"" help:"Cache maintenance"`
}

// HomeCmd represents the home command
type HomeCmd struct {
	NoWait bool `help:"Print only the cached snapshot; refreshes still finish before exit"`
}

// RefreshCmd represents the refresh command
type RefreshCmd struct{}

// SearchCmd represents the search command
type SearchCmd struct {
	Query       []string `arg:"" help:"Search text"`
	Author      string   `short:"a" help:"Narrow results with an author restriction"`
	Interactive bool     `short:"i" help:"Pick a result interactively"`
}

// OpenCmd represents the open command
type OpenCmd struct {
	ID string `arg:"" help:"Book ID to open"`
}

// CacheCmd groups cache maintenance subcommands
type CacheCmd struct {
	Clear CacheClearCmd `cmd:"" help:"Drop all cached shelves and search results"`
}

// CacheClearCmd represents the cache clear command
type CacheClearCmd struct {
	Scope string `arg:"" optional:"" enum:"categories,searches,all" default:"all" help:"What to clear: categories, searches or all"`
}

// newProvider is swapped out in tests.
var newProvider = func() pipeline.Provider {
	return googlebooks.New(config.APIKey)
}

// app bundles the open store and its pipeline for one command run.
type app struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
}

func openApp() (*app, error) {
	st, err := store.Open(config.DBFile)
	if err != nil {
		return nil, err
	}

	seeds, err := config.SeedCategories()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := st.SeedCategories(seeds); err != nil {
		_ = st.Close()
		return nil, err
	}

	p := pipeline.New(st, newProvider(), pipeline.Config{CacheTTL: config.CacheTTL})
	return &app{store: st, pipeline: p}, nil
}

func (a *app) close() {
	a.pipeline.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookdex"),
		kong.Description("An offline-first book catalog built on the Google Books API."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("dbfile", "./bookdex.db")
	viper.SetDefault("cache.ttl", "168h")
	viper.SetDefault("covers.dir", "./covers")
	viper.SetDefault("covers.download", false)

	// Enable environment variable support
	viper.AutomaticEnv()
	if err := viper.BindEnv("GoogleBooksAPIKey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("Config file not found, using defaults")
		} else {
			slog.Error("Fatal error reading config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	viper.Set("dbfile", cli.DBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
	viper.Set("covers.dir", cli.CoversDir)

	// Re-resolve globals now that flags are folded in
	config.InitConfig()
	config.SetDownloadCovers(cli.DownloadCovers)
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("BOOKDEX_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// Run methods for each command

func (h *HomeCmd) Run() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	for update := range a.pipeline.Home(context.Background()) {
		if update.Err != nil {
			return update.Err
		}
		if h.NoWait && update.Refreshed {
			continue
		}
		fmt.Println(tui.RenderShelves(update.Categories))
		if update.Refreshed {
			downloadShelfCovers(update.Categories)
		}
	}
	return nil
}

func (r *RefreshCmd) Run() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := <-a.pipeline.RefreshAll(context.Background()); err != nil {
		return err
	}

	categories, err := a.store.Categories()
	if err != nil {
		return err
	}
	for i := range categories {
		books, err := a.store.CategoryBooks(categories[i].ID)
		if err != nil {
			return err
		}
		categories[i].Books = books
	}
	fmt.Println(tui.RenderShelves(categories))
	downloadShelfCovers(categories)
	return nil
}

func (s *SearchCmd) Run() error {
	text := strings.TrimSpace(strings.Join(s.Query, " "))
	if text == "" {
		return fmt.Errorf("search text is required")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := <-a.pipeline.Search(context.Background(), pipeline.Request{
		Text:   text,
		Author: s.Author,
	})
	if result.Err != nil {
		return result.Err
	}

	downloadCovers(result.Books)

	if !s.Interactive {
		fmt.Println(tui.RenderSearchResults(text, result.Books))
		return nil
	}

	selection, err := tui.Select(text, result.Books)
	if err != nil {
		return err
	}
	if selection.Action != tui.ActionSelected {
		return nil
	}

	opened := <-a.pipeline.Open(context.Background(), selection.Selection.ID)
	if opened.Err != nil {
		return opened.Err
	}
	fmt.Println(tui.RenderBook(*opened.Book))
	return nil
}

func (o *OpenCmd) Run() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := <-a.pipeline.Open(context.Background(), o.ID)
	if result.Err != nil {
		return result.Err
	}
	if result.Book == nil {
		return fmt.Errorf("no book with ID %q in the catalog", o.ID)
	}

	fmt.Println(tui.RenderBook(*result.Book))
	return nil
}

func (c *CacheClearCmd) Run() error {
	st, err := store.Open(config.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	scope := c.Scope
	if scope == "" {
		scope = "all"
	}
	if scope == "categories" || scope == "all" {
		if err := st.ClearCategoryCache(); err != nil {
			return err
		}
	}
	if scope == "searches" || scope == "all" {
		if err := st.ClearSearchCache(); err != nil {
			return err
		}
	}

	slog.Info("Cache cleared", "db", config.DBFile, "scope", scope)
	return nil
}

func downloadShelfCovers(categories []book.Category) {
	for _, cat := range categories {
		downloadCovers(cat.Books)
	}
}

// downloadCovers fetches cover images for the given books when cover
// downloading is enabled. Failures are logged and skipped.
func downloadCovers(books []book.Book) {
	if !config.DownloadCovers {
		return
	}
	for _, b := range books {
		if !b.HasCover() {
			continue
		}
		_, err := fileutil.DownloadCover(fileutil.CoverDownloadOptions{
			URL:       b.CoverURL,
			OutputDir: config.CoversDir,
			Filename:  fileutil.BuildCoverFilename(b.Title, b.ID),
		})
		if err != nil {
			slog.Warn("Cover download failed", "book", b.Title, "error", err)
		}
	}
}
