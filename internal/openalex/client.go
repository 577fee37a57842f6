// Package openalex fetches journal metadata from the OpenAlex catalog.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/journalrec/internal/journal"
)

const (
	// BaseURL is the OpenAlex REST API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// RateLimit is the polite-pool request rate per second.
	RateLimit = 10.0

	// DefaultPerPage is the page size requested per call (the API maximum).
	DefaultPerPage = 200

	// DefaultMaxPages bounds how many pages a single fetch walks.
	DefaultMaxPages = 5

	// InitialCursor starts cursor pagination.
	InitialCursor = "*"

	journalsPath = "/journals"
)

// Client is a rate-limited HTTP client for the OpenAlex journals endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing or mirrors).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithMailto identifies the caller for the OpenAlex polite pool.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a new OpenAlex client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchResult holds the journals accumulated by a fetch.
// Warning is set when fetching stopped early because of a failure;
// Journals still holds everything gathered before it.
type FetchResult struct {
	Journals []journal.Journal
	Pages    int
	Dropped  int
	Complete bool
	Warning  error
}

// FetchJournals walks the journals listing with cursor pagination.
// It stops after maxPages pages, when the API returns no further cursor,
// or at the first failed request. It never returns an error: failures
// are reported through FetchResult.Warning alongside any partial data.
func (c *Client) FetchJournals(ctx context.Context, perPage, maxPages int) *FetchResult {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	res := &FetchResult{}
	cursor := InitialCursor
	for page := 0; page < maxPages; page++ {
		p, err := c.fetchPage(ctx, perPage, cursor)
		if err != nil {
			res.Warning = fmt.Errorf("fetching page %d: %w", page+1, err)
			return res
		}

		journals, dropped, _ := journal.DecodeRecords(p.Results)
		res.Journals = append(res.Journals, journals...)
		res.Dropped += dropped
		res.Pages++

		if p.Meta.NextCursor == nil || *p.Meta.NextCursor == "" {
			res.Complete = true
			return res
		}
		cursor = *p.Meta.NextCursor
	}
	return res
}

// fetchPage requests a single page of journals.
func (c *Client) fetchPage(ctx context.Context, perPage int, cursor string) (*pageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("per-page", strconv.Itoa(perPage))
	q.Set("cursor", cursor)
	if c.mailto != "" {
		q.Set("mailto", c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+journalsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	var p pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &p, nil
}

// checkHTTPErrors returns an error for any status other than 200.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: readSnippet(resp.Body)}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	}
	return apiErr
}

// readSnippet reads at most a short prefix of an error body.
func readSnippet(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 256))
	if err != nil {
		return ""
	}
	return string(b)
}

// pageResponse is one page of the journals listing.
type pageResponse struct {
	Results []json.RawMessage `json:"results"`
	Meta    struct {
		NextCursor *string `json:"next_cursor"`
		Count      int     `json:"count"`
	} `json:"meta"`
}
