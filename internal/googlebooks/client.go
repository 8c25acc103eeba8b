// Package googlebooks is the upstream search/detail provider: a thin,
// rate-limited client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lepinkainen/bookdex/internal/book"
	"github.com/lepinkainen/bookdex/internal/errors"
	"github.com/lepinkainen/bookdex/internal/query"
	"github.com/lepinkainen/bookdex/internal/ratelimit"
)

// DefaultBaseURL is the production Google Books API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// Client executes search and detail calls against the Google Books API.
// A zero API key is valid; Google just applies stricter anonymous quotas.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a Google Books client with a 1 req/s limiter.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    ratelimit.New("GoogleBooks", 1),
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one volume search with the fixed defaults (en/US, books,
// relevance, page size 40) at the given start index. A successful call
// with zero items returns an empty slice, not an error.
func (c *Client) Search(ctx context.Context, searchQuery string, startIndex int) ([]book.Book, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", searchQuery)
	params.Set("maxResults", strconv.Itoa(query.DefaultMaxResults))
	params.Set("printType", query.DefaultPrintType)
	params.Set("orderBy", query.DefaultOrderBy)
	params.Set("langRestrict", query.DefaultLang)
	params.Set("country", query.DefaultCountry)
	if startIndex > 0 {
		params.Set("startIndex", strconv.Itoa(startIndex))
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var result volumesResponse
	if err := c.get(ctx, c.baseURL+"/volumes?"+params.Encode(), "search volumes", &result); err != nil {
		return nil, err
	}

	return mapVolumes(result.Items), nil
}

// Details fetches one volume and returns its description, which may be
// empty. Used by the budgeted enrichment loop.
func (c *Client) Details(ctx context.Context, volumeID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("country", query.DefaultCountry)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var result volumeItem
	endpoint := c.baseURL + "/volumes/" + url.PathEscape(volumeID) + "?" + params.Encode()
	if err := c.get(ctx, endpoint, "volume details", &result); err != nil {
		return "", err
	}

	return result.VolumeInfo.Description, nil
}

func (c *Client) get(ctx context.Context, endpoint, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewTransportError(op, fmt.Errorf("API returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
