// Package footballranking fetches the HTML pages of the public football
// ranking site. Parsing is done by the ranking package; this client only
// pages through the site politely.
//
// Pages are addressed with a ?page=N query parameter starting at 1.
// Rate limiting is handled via a token bucket limiter.
package footballranking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent is a browser-like user agent; the site rejects bare
// library agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Client fetches ranking pages. It implements ranking.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a ranking page client with rate limiting.
func NewClient(baseURL, userAgent string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// PageURL returns the URL of a ranking page.
func (c *Client) PageURL(page int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return c.baseURL + "?" + params.Encode()
}

// FetchPage performs a rate-limited GET of one ranking page and returns its HTML.
func (c *Client) FetchPage(ctx context.Context, page int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.PageURL(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ranking page %d returned %d: %s", page, resp.StatusCode, truncate(body, 200))
	}

	c.logger.Debug("Fetched ranking page", "page", page, "bytes", len(body))
	return string(body), nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
