package fetch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flacdesk/infrastructure/host"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	// PluginName is the name the plugin registers under
	PluginName = "http"

	// DefaultMaxRedirects is used when a request does not set maxRedirections
	DefaultMaxRedirects = 5

	defaultTimeout = 10 * time.Second
	maxBodySize    = 32 << 20
)

// Request is the argument of the fetch command
type Request struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	TimeoutMs       int               `json:"timeoutMs"`
	MaxRedirections *int              `json:"maxRedirections"`
}

// Response is returned by the fetch command
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	URL        string            `json:"url"`
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Plugin performs outbound HTTP requests restricted to a scope
type Plugin struct {
	scope     *Scope
	timeout   time.Duration
	transport http.RoundTripper
}

// Option is a functional option for configuring Plugin
type Option func(*Plugin)

// WithTimeout sets the default request timeout
func WithTimeout(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTransport sets a custom transport (for testing)
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Plugin) {
		p.transport = rt
	}
}

// New creates the http plugin
func New(scope *Scope, opts ...Option) *Plugin {
	p := &Plugin{
		scope:     scope,
		timeout:   defaultTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements host.Plugin
func (p *Plugin) Name() string {
	return PluginName
}

// Commands implements host.Plugin
func (p *Plugin) Commands() map[string]host.Handler {
	return map[string]host.Handler{
		"fetch": host.Typed(func(ctx context.Context, _ *host.Invocation, req Request) (any, error) {
			return p.Fetch(ctx, req)
		}),
	}
}

// Client returns an http.Client that enforces the scope on every request and redirect
func (p *Plugin) Client(timeout time.Duration, maxRedirects int) *http.Client {
	return &http.Client{
		Timeout:   cmp.Or(timeout, p.timeout),
		Transport: &scopedTransport{scope: p.scope, next: p.transport},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				zap.L().Warn("HTTP redirect limit exceeded",
					zap.String("url", req.URL.String()), zap.Int("redirectCount", len(via)))
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch performs a single request and buffers the response body
func (p *Plugin) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(cmp.Or(req.Method, http.MethodGet))

	if err := p.scope.Allow(req.URL); err != nil {
		zap.L().Warn("HTTP request blocked by scope",
			zap.String("url", req.URL), zap.String("method", method), zap.Error(err))
		return nil, err
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	maxRedirects := DefaultMaxRedirects
	if req.MaxRedirections != nil {
		maxRedirects = *req.MaxRedirections
	}
	client := p.Client(time.Duration(req.TimeoutMs)*time.Millisecond, maxRedirects)

	resp, err := client.Do(httpReq)
	if err != nil {
		zap.L().Debug("HTTP request failed", zap.String("method", method),
			zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %s", humanize.IBytes(maxBodySize))
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
		Body:       string(data),
		URL:        resp.Request.URL.String(),
	}, nil
}

// scopedTransport refuses requests whose URL falls outside the scope
type scopedTransport struct {
	scope *Scope
	next  http.RoundTripper
}

func (t *scopedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.scope.Allow(req.URL.String()); err != nil {
		zap.L().Warn("HTTP request blocked by scope",
			zap.String("url", req.URL.String()), zap.String("method", req.Method), zap.Error(err))
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// IsOutOfScope reports whether err was caused by a scope rejection
func IsOutOfScope(err error) bool {
	return errors.Is(err, ErrOutOfScope)
}
