// File: internal/catalogclient/client.go
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/generate"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIError is a non-2xx response from the catalog API.
type APIError struct {
	StatusCode int         `json:"status"`
	Code       string      `json:"error"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("catalog api: status %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the catalog API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Params are the song list filters.
type Params struct {
	Limit       int
	Offset      int
	Query       string
	Instrument  string
	SingerRange string
}

func (p Params) values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Instrument != "" {
		v.Set("instrument", p.Instrument)
	}
	if p.SingerRange != "" {
		v.Set("singer_range", p.SingerRange)
	}
	return v
}

// Client talks to the catalog API. Requests are rate limited.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a catalog API client. A nil httpClient uses a client with a 60s
// timeout; requestsPerSecond <= 0 disables rate limiting.
func NewClient(baseURL string, httpClient *http.Client, requestsPerSecond float64, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog api base url %q", baseURL)
	}
	if httpClient == nil {
		// Generation can take most of a minute on a cold cache.
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.Named("CatalogClient"),
	}, nil
}

// resolve turns a path or an absolute URL into a request URL.
func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

func songPath(title string, suffix string) string {
	return "/api/v2/songs/" + url.PathEscape(title) + suffix
}

func (c *Client) do(ctx context.Context, method, ref string, body interface{}, header http.Header) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	target, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.logger.Debug("Catalog API request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	// The body's status field, when present, must not override the real one.
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, ref string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, ref, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListSongs fetches one page of the song list.
func (c *Client) ListSongs(ctx context.Context, p Params) (*catalog.SongListResponse, error) {
	ref := "/api/v2/songs"
	if q := p.values().Encode(); q != "" {
		ref += "?" + q
	}
	var out catalog.SongListResponse
	if err := c.getJSON(ctx, ref, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSong fetches a song's variations.
func (c *Client) GetSong(ctx context.Context, title string) (*catalog.SongDetailResponse, error) {
	var out catalog.SongDetailResponse
	if err := c.getJSON(ctx, songPath(title, ""), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CachedKeys lists the keys of title already rendered on the server.
func (c *Client) CachedKeys(ctx context.Context, title string) (*catalog.CachedKeysResponse, error) {
	var out catalog.CachedKeysResponse
	if err := c.getJSON(ctx, songPath(title, "/cached"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CatalogResult is the outcome of a conditional catalog fetch.
type CatalogResult struct {
	Catalog     *catalog.CatalogResponse
	ETag        string
	NotModified bool
}

// Catalog fetches every song. A non-empty etag makes the request conditional.
func (c *Client) Catalog(ctx context.Context, etag string) (*CatalogResult, error) {
	header := http.Header{}
	if etag != "" {
		header.Set("If-None-Match", quoteETag(etag))
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/v2/catalog", nil, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &CatalogResult{ETag: etag, NotModified: true}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, decodeError(resp)
	}
	var out catalog.CatalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &CatalogResult{Catalog: &out, ETag: unquoteETag(resp.Header.Get("ETag"))}, nil
}

// Generate asks the server to render a PDF and returns where to fetch it.
func (c *Client) Generate(ctx context.Context, req generate.Request) (*generate.Response, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v2/generate", req, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	var out generate.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// PDFResult is a downloaded PDF, or a confirmation that the cached copy is current.
type PDFResult struct {
	Data        []byte
	ETag        string
	NotModified bool
}

// FetchPDF downloads pdfURL, which may be relative to the base URL. When etag is set and
// the server answers 304, NotModified is true and Data is empty.
func (c *Client) FetchPDF(ctx context.Context, pdfURL, etag string) (*PDFResult, error) {
	header := http.Header{}
	if etag != "" {
		header.Set("If-None-Match", quoteETag(etag))
	}
	resp, err := c.do(ctx, http.MethodGet, pdfURL, nil, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &PDFResult{ETag: etag, NotModified: true}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return &PDFResult{Data: data, ETag: unquoteETag(resp.Header.Get("ETag"))}, nil
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, "W/") {
		return etag
	}
	return `"` + etag + `"`
}

func unquoteETag(etag string) string {
	return strings.Trim(strings.TrimPrefix(etag, "W/"), `"`)
}
