// Package client is a typed HTTP client for an entityd server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/entityd/pkg/config"
	"github.com/getmockd/entityd/pkg/entity"
)

// DefaultURL is the server address used when none is configured.
const DefaultURL = "http://localhost:8080"

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Hint       string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to one entity resource and the server's admin routes.
type Client struct {
	baseURL    string
	basePath   string
	resource   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout for the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBasePath sets the application base path (default /headless-test/v1.0).
func WithBasePath(basePath string) Option {
	return func(c *Client) {
		c.basePath = strings.TrimSuffix(basePath, "/")
	}
}

// WithResource sets the resource name (default "entities").
func WithResource(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.resource = name
		}
	}
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		basePath: config.DefaultBasePath,
		resource: config.DefaultResourceName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListOptions are the query parameters of a list request.
type ListOptions struct {
	Page     int
	PageSize int
	Sort     string
	Filter   string
	// Match holds exact-match field filters.
	Match map[string]string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set(entity.ParamPage, strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		v.Set(entity.ParamPageSize, strconv.Itoa(o.PageSize))
	}
	if o.Sort != "" {
		v.Set(entity.ParamSort, o.Sort)
	}
	if o.Filter != "" {
		v.Set(entity.ParamFilter, o.Filter)
	}
	for k, val := range o.Match {
		v.Set(k, val)
	}
	return v
}

// Get returns the entity stored under id.
func (c *Client) Get(ctx context.Context, id int64) (*entity.Entity, error) {
	var e entity.Entity
	if err := c.do(ctx, http.MethodGet, c.itemPath(id), nil, http.StatusOK, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns a page of entities.
func (c *Client) List(ctx context.Context, opts ListOptions) (*entity.Page, error) {
	path := c.collectionPath()
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var page entity.Page
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Create stores e through the collection route.
func (c *Client) Create(ctx context.Context, e entity.Entity) (*entity.Entity, error) {
	return c.store(ctx, http.MethodPost, c.collectionPath(), e)
}

// Put stores e under id. The server keeps the id inside e when both are set.
func (c *Client) Put(ctx context.Context, id int64, e entity.Entity) (*entity.Entity, error) {
	return c.store(ctx, http.MethodPut, c.itemPath(id), e)
}

// PutRaw stores a raw JSON object under id, letting the server fill in a
// missing id from the path.
func (c *Client) PutRaw(ctx context.Context, id int64, body []byte) (*entity.Entity, error) {
	var out entity.Entity
	if err := c.do(ctx, http.MethodPut, c.itemPath(id), body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.itemPath(id), nil, http.StatusNoContent, nil)
}

// Reset restores the server's seed data and returns the entity count.
func (c *Client) Reset(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/reset", nil, http.StatusOK, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Clear removes every entity and returns how many were removed.
func (c *Client) Clear(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodDelete, "/admin/entities", nil, http.StatusOK, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Health returns nil when the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &APIError{StatusCode: http.StatusOK, ErrorCode: "unhealthy", Message: "server status: " + out.Status}
	}
	return nil
}

func (c *Client) store(ctx context.Context, method, path string, e entity.Entity) (*entity.Entity, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	var out entity.Entity
	if err := c.do(ctx, method, path, body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) collectionPath() string {
	return c.basePath + "/" + c.resource
}

func (c *Client) itemPath(id int64) string {
	return c.collectionPath() + "/" + strconv.FormatInt(id, 10)
}

// do performs a request and decodes a response with the expected status into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			ErrorCode: "connection_error",
			Message:   fmt.Sprintf("cannot connect to entityd at %s: %v", c.baseURL, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp entity.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg := errResp.Error
		if errResp.Detail != "" {
			msg += ": " + errResp.Detail
		}
		if errResp.ID != nil {
			msg += fmt.Sprintf(" (id %d)", *errResp.ID)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  errResp.Error,
			Message:    msg,
			Hint:       errResp.Hint,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorCode:  "unknown_error",
		Message:    fmt.Sprintf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}
