// Package catalog is the HTTP client for the dashboard catalog REST API
// (GET /dashboard/, GET /dashboard/{id}, POST|PATCH|DELETE /view/...).
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashgrid/internal/domain"
)

// ErrNetwork is returned for transport failures and 5xx responses.
var ErrNetwork = errors.New("catalog unreachable")

// StatusError is a non-404 4xx answer from the catalog.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog: http %d", e.Code)
	}
	return fmt.Sprintf("catalog: http %d: %s", e.Code, e.Body)
}

// Client implements domain.Catalog over HTTP.
type Client struct {
	base    string
	http    *http.Client
	headers map[string]string
}

var _ domain.Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header sent on every request (auth tokens and the like).
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// New returns a client for the API rooted at baseURL, e.g.
// "https://dashboard.example.net/api/v1".
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListDashboards(ctx context.Context) ([]domain.DashboardSummary, error) {
	var out []domain.DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/dashboard/", nil, &out); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return out, nil
}

func (c *Client) FetchDashboard(ctx context.Context, dashboardID string) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard/"+url.PathEscape(dashboardID), nil, &d); err != nil {
		return nil, fmt.Errorf("fetch dashboard %s: %w", dashboardID, err)
	}
	if d.ID == "" {
		d.ID = dashboardID
	}
	return &d, nil
}

func (c *Client) CreateBlock(ctx context.Context, dashboardID string, draft domain.Block) (*domain.Block, error) {
	body, err := cleanBody(draft)
	if err != nil {
		return nil, err
	}
	var created domain.Block
	if err := c.do(ctx, http.MethodPost, viewPath(dashboardID, ""), body, &created); err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("create block: response carries no uuid")
	}
	return &created, nil
}

// geometryPatch is the body sent after a drag or resize.
type geometryPatch struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Target      string           `json:"target"`
	Type        domain.BlockType `json:"type"`
	Width       float64          `json:"width"`
	Height      float64          `json:"height"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
}

func (c *Client) UpdateBlockGeometry(ctx context.Context, dashboardID, blockID string, b domain.Block) (*domain.Block, error) {
	patch := geometryPatch{
		Title:       b.Title,
		Description: b.Description,
		Target:      b.Target,
		Type:        b.Type,
		Width:       b.Width,
		Height:      b.Height,
		X:           b.X,
		Y:           b.Y,
	}
	return c.patch(ctx, dashboardID, blockID, patch, b)
}

func (c *Client) UpdateBlockMetadata(ctx context.Context, dashboardID, blockID string, fields domain.Block) (*domain.Block, error) {
	body, err := cleanBody(fields)
	if err != nil {
		return nil, err
	}
	return c.patch(ctx, dashboardID, blockID, body, fields)
}

func (c *Client) patch(ctx context.Context, dashboardID, blockID string, body any, sent domain.Block) (*domain.Block, error) {
	var updated domain.Block
	if err := c.do(ctx, http.MethodPatch, viewPath(dashboardID, blockID), body, &updated); err != nil {
		return nil, fmt.Errorf("update block %s: %w", blockID, err)
	}
	// Some deployments answer 204; fall back to what was sent.
	if updated.ID == "" {
		sent.ID = blockID
		return &sent, nil
	}
	return &updated, nil
}

func (c *Client) DeleteBlock(ctx context.Context, dashboardID, blockID string) error {
	if err := c.do(ctx, http.MethodDelete, viewPath(dashboardID, blockID), nil, nil); err != nil {
		return fmt.Errorf("delete block %s: %w", blockID, err)
	}
	return nil
}

func viewPath(dashboardID, blockID string) string {
	p := "/view/" + url.PathEscape(dashboardID)
	if blockID != "" {
		p += "/" + url.PathEscape(blockID)
	}
	return p
}

// cleanBody encodes b for create/update requests, dropping the members the
// server owns.
func cleanBody(b domain.Block) (map[string]any, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}
	delete(m, "uuid")
	delete(m, "schema_version")
	return m, nil
}

// ── transport ───────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch code := resp.StatusCode; {
	case code < 300:
		return nil
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: code, Body: strings.TrimSpace(string(msg))}
	}
}
