package flac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"flacdesk/domain/music"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public catalogue API
const DefaultBaseURL = "https://api.flac.life"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0"

// browserHeaders are sent on every request; the API rejects bare clients
var browserHeaders = map[string]string{
	"Accept":          "application/json, text/javascript, */*; q=0.01",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8,en-GB;q=0.7,en-US;q=0.6",
	"Cache-Control":   "no-cache",
	"Origin":          "https://flac.life",
	"Pragma":          "no-cache",
	"Referer":         "https://flac.life/",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-site",
	"User-Agent":      userAgent,
}

// Client implements music.Catalogue against the FLAC catalogue API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client, normally the http plugin's scoped client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// NewClient creates a new catalogue client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Headers returns the browser headers, plus any extras, for requests to the API or its CDN
func Headers(extra map[string]string) map[string]string {
	h := make(map[string]string, len(browserHeaders)+len(extra))
	for k, v := range browserHeaders {
		h[k] = v
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

// Search implements music.Catalogue
func (c *Client) Search(ctx context.Context, keyword string, page, size int) (*music.List, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var env music.Envelope[music.List]
	if err := c.get(ctx, "/search/qq?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	if env.Code != http.StatusOK {
		return nil, fmt.Errorf("search failed: %s", env.Message)
	}

	return &music.List{Total: env.Result.Total, List: env.Result.List}, nil
}

// Link implements music.Catalogue
func (c *Client) Link(ctx context.Context, songID, quality, unlockCode string) (string, error) {
	if songID == "" {
		return "", music.ErrSongIDRequired
	}
	if unlockCode == "" {
		return "", music.ErrUnlockCodeRequired
	}

	path := fmt.Sprintf("/url/qq/%s/%s", url.PathEscape(songID), url.PathEscape(quality))
	var env music.Envelope[string]
	if err := c.get(ctx, path, map[string]string{"unlockcode": unlockCode}, &env); err != nil {
		return "", err
	}
	if env.Code != http.StatusOK {
		return "", fmt.Errorf("failed to get download link: %s", env.Message)
	}

	return env.Result, nil
}

// Unlock implements music.Catalogue
func (c *Client) Unlock(ctx context.Context, code string) (json.RawMessage, error) {
	if code == "" {
		return nil, music.ErrUnlockCodeRequired
	}

	var env music.Envelope[json.RawMessage]
	if err := c.get(ctx, "/unlock/"+url.PathEscape(code), nil, &env); err != nil {
		return nil, err
	}
	if env.Code != http.StatusOK {
		return nil, fmt.Errorf("unlock failed: %s", env.Message)
	}

	return env.Result, nil
}

func (c *Client) get(ctx context.Context, path string, extra map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range Headers(extra) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zap.L().Debug("catalogue request rejected", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("request failed: %s", http.StatusText(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure Client implements music.Catalogue
var _ music.Catalogue = (*Client)(nil)
