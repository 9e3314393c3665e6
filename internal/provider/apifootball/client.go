// Package apifootball provides the live fixtures source: an HTTP client for
// the API-Football v3 service, the raw snapshot fetcher that writes one JSON
// payload per (league, season) plus a manifest, and the payload parser that
// turns snapshots into fixtures.
//
// API-Football uses x-apisports-key header auth.
// Rate limiting is handled via a token bucket limiter.
package apifootball

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// FixturesEndpoint is the only endpoint the pipeline reads.
const FixturesEndpoint = "/fixtures"

// Client is the HTTP client for API-Football endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an API-Football HTTP client with rate limiting.
func NewClient(baseURL, apiKey string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// FixtureParams returns the query parameters of a fixtures request.
func FixtureParams(leagueID, season int) url.Values {
	params := url.Values{}
	params.Set("league", strconv.Itoa(leagueID))
	params.Set("season", strconv.Itoa(season))
	return params
}

// Fixtures returns the raw JSON body of /fixtures for one league and season.
func (c *Client) Fixtures(ctx context.Context, leagueID, season int) ([]byte, error) {
	return c.get(ctx, FixturesEndpoint, FixtureParams(leagueID, season))
}

// apiErrors is the error envelope API-Football returns with status 200.
type apiErrors struct {
	Errors json.RawMessage `json:"errors"`
}

// get performs a rate-limited GET request and returns the body. A body that
// is not JSON, or that carries a non-empty errors field, is an error.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d | %s", resp.StatusCode, truncate(body, 300))
	}

	var envelope apiErrors
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if hasErrors(envelope.Errors) {
		return nil, fmt.Errorf("API-Football %s errors: %s", path, truncate(envelope.Errors, 300))
	}

	return body, nil
}

// hasErrors reports whether the errors field is a non-empty array or object.
func hasErrors(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch e := v.(type) {
	case []interface{}:
		return len(e) > 0
	case map[string]interface{}:
		return len(e) > 0
	default:
		return false
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
