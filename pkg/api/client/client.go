package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the dashboard JSON API for scripts and
// terminal tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided dashboard base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8501"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL: strings.TrimRight(trimmed, "/"),
		// Cube queries over long ranges at day grain can take a while.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// Metric mirrors a registry entry.
type Metric struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Measure     string `json:"measure"`
	Description string `json:"description"`
}

// Catalog is the /api/metrics payload.
type Catalog struct {
	Metrics       []Metric          `json:"metrics"`
	Granularities []string          `json:"granularities"`
	Defaults      map[string]string `json:"defaults"`
}

// Point is one sample of a series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a measure's time series and its axis format.
type Series struct {
	Measure string  `json:"measure"`
	Format  string  `json:"format"`
	Points  []Point `json:"points"`
}

// Panel is the /api/series payload. Chart is left encoded.
type Panel struct {
	Metric Metric          `json:"metric"`
	SQL    string          `json:"sql"`
	Series Series          `json:"series"`
	Chart  json.RawMessage `json:"chart"`
}

// SeriesQuery selects a panel; empty fields take the server defaults.
type SeriesQuery struct {
	Metric string
	From   string
	To     string
	Grain  string
}

func (q SeriesQuery) values() url.Values {
	v := url.Values{}
	if q.Metric != "" {
		v.Set("metric", q.Metric)
	}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if q.Grain != "" {
		v.Set("grain", q.Grain)
	}
	return v
}

// Metrics lists the selectable metrics and defaults.
func (c *Client) Metrics(ctx context.Context) (Catalog, error) {
	var out Catalog
	if err := c.get(ctx, "/api/metrics", nil, &out); err != nil {
		return Catalog{}, err
	}
	return out, nil
}

// Series renders one panel.
func (c *Client) Series(ctx context.Context, q SeriesQuery) (Panel, error) {
	var out Panel
	if err := c.get(ctx, "/api/series", q.values(), &out); err != nil {
		return Panel{}, err
	}
	return out, nil
}

// Model returns the Cube data model source.
func (c *Client) Model(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/model", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}
