// Package apifootball fetches live match statistics from an API-Football
// compatible endpoint (api-sports.io or the local simulator server) and turns
// them into snapshots for the monitor.
package apifootball

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
)

// Client provides access to the fixture statistics endpoints
type Client struct {
	apiBaseURL     string
	apiHost        string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig holds optional tuning for the client
type ClientConfig struct {
	APIHost           string
	APIKey            string
	RequestsPerMinute int
	MaxRetries        int
	RetryDelayBase    time.Duration
}

// NewClient creates a new client. The timeout bounds every single HTTP request
// so a hung upstream can never block a monitor forever.
func NewClient(apiBaseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}

	return &Client{
		apiBaseURL:     strings.TrimRight(apiBaseURL, "/"),
		apiHost:        cfg.APIHost,
		apiKey:         cfg.APIKey,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// statisticsResponse is the /fixtures/statistics payload. Elapsed is only
// sent by the simulator; the real API reports it on /fixtures.
type statisticsResponse struct {
	Response []TeamStatistics `json:"response"`
	Elapsed  *int             `json:"elapsed"`
	Errors   json.RawMessage  `json:"errors"`
}

// TeamStatistics is one team's block in the statistics response
type TeamStatistics struct {
	Team struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Statistics []Statistic `json:"statistics"`
}

// Statistic is one typed value. Value is a number, a string such as "45%", or null.
type Statistic struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type fixturesResponse struct {
	Response []struct {
		Fixture struct {
			ID     int64 `json:"id"`
			Status struct {
				Short   string `json:"short"`
				Elapsed *int   `json:"elapsed"`
			} `json:"status"`
		} `json:"fixture"`
	} `json:"response"`
	Errors json.RawMessage `json:"errors"`
}

// Fetch retrieves the current statistics for a fixture.
func (c *Client) Fetch(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error) {
	q := url.Values{}
	q.Set("fixture", fixture.String())

	var stats statisticsResponse
	if err := c.getJSON(ctx, "/fixtures/statistics", q, &stats); err != nil {
		return models.StatSnapshot{}, fmt.Errorf("failed to fetch statistics for fixture %s: %w", fixture, err)
	}
	if err := apiError(stats.Errors); err != nil {
		return models.StatSnapshot{}, fmt.Errorf("fixture %s: %w", fixture, err)
	}

	snap := models.StatSnapshot{
		Fixture:   fixture,
		FetchedAt: time.Now(),
	}
	for _, team := range stats.Response {
		for _, st := range team.Statistics {
			snap.Set(team.Team.Name, st.Type, parseValue(st.Value))
		}
	}

	if stats.Elapsed != nil {
		snap.Elapsed = *stats.Elapsed
		return snap, nil
	}

	elapsed, err := c.fetchElapsed(ctx, fixture)
	if err != nil {
		// Statistics are still usable; the match clock just stays unknown.
		logger.Debug("Elapsed lookup for fixture %s failed: %v", fixture, err)
		return snap, nil
	}
	snap.Elapsed = elapsed
	return snap, nil
}

// fetchElapsed reads the match minute from the fixtures endpoint.
func (c *Client) fetchElapsed(ctx context.Context, fixture models.FixtureID) (int, error) {
	q := url.Values{}
	q.Set("id", fixture.String())

	var resp fixturesResponse
	if err := c.getJSON(ctx, "/fixtures", q, &resp); err != nil {
		return 0, err
	}
	if err := apiError(resp.Errors); err != nil {
		return 0, err
	}
	for _, f := range resp.Response {
		if models.FixtureID(f.Fixture.ID) == fixture && f.Fixture.Status.Elapsed != nil {
			return *f.Fixture.Status.Elapsed, nil
		}
	}
	return 0, fmt.Errorf("no elapsed time reported for fixture %s", fixture)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	resp, err := c.doRequest(ctx, c.apiBaseURL+path+"?"+q.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-rapidapi-key", c.apiKey)
			if c.apiHost != "" {
				req.Header.Set("x-rapidapi-host", c.apiHost)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelayBase * time.Duration(i+1)):
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// apiError turns the API's "errors" field into an error. The API sends an
// empty array when there are none and an object keyed by field otherwise.
func apiError(raw json.RawMessage) error {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "[]" || s == "{}" {
		return nil
	}
	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		parts := make([]string, 0, len(byField))
		for k, v := range byField {
			parts = append(parts, k+": "+v)
		}
		return fmt.Errorf("api error: %s", strings.Join(parts, "; "))
	}
	return fmt.Errorf("api error: %s", s)
}

// parseValue converts a raw statistic value. Numbers are taken as is, strings
// like "45%" or "12" are parsed, anything else is reported as null.
func parseValue(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil
	}
	str = strings.TrimSuffix(strings.TrimSpace(str), "%")
	n, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	return &n
}
