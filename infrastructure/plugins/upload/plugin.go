package upload

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"flacdesk/domain/music"
	"flacdesk/infrastructure/host"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// PluginName is the name the plugin registers under
	PluginName = "upload"

	partSuffix      = ".part"
	defaultInterval = 100 * time.Millisecond
	maxErrorBody    = 4 << 10
)

// TransferRequest is the argument of the upload and download commands
type TransferRequest struct {
	URL        string            `json:"url"`
	FilePath   string            `json:"filePath"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	OnProgress string            `json:"onProgress"`
}

// Plugin moves files between the local disk and remote URLs
type Plugin struct {
	client   *http.Client
	fs       afero.Fs
	interval time.Duration
	now      func() time.Time
}

// Option is a functional option for configuring Plugin
type Option func(*Plugin)

// WithFs sets a custom filesystem (for testing)
func WithFs(fsys afero.Fs) Option {
	return func(p *Plugin) {
		p.fs = fsys
	}
}

// WithProgressInterval sets the minimum time between progress events
func WithProgressInterval(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates the upload plugin. client is normally the http plugin's scoped client.
func New(client *http.Client, opts ...Option) *Plugin {
	p := &Plugin{
		client:   cmp.Or(client, http.DefaultClient),
		fs:       afero.NewOsFs(),
		interval: defaultInterval,
		now:      time.Now,
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
		"upload": host.Typed(func(ctx context.Context, inv *host.Invocation, req TransferRequest) (any, error) {
			return p.Upload(ctx, req, channelProgress(inv.Channel(req.OnProgress)))
		}),
		"download": host.Typed(func(ctx context.Context, inv *host.Invocation, req TransferRequest) (any, error) {
			return nil, p.Download(ctx, req, channelProgress(inv.Channel(req.OnProgress)))
		}),
	}
}

func channelProgress(ch *host.Channel) ProgressFunc {
	return func(pr Progress) {
		_ = ch.Send(pr)
	}
}

// Download fetches req.URL into req.FilePath. The target is replaced only when the transfer completes.
func (p *Plugin) Download(ctx context.Context, req TransferRequest, onProgress ProgressFunc) error {
	if req.URL == "" || req.FilePath == "" {
		return fmt.Errorf("url and filePath are required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, cmp.Or(strings.ToUpper(req.Method), http.MethodGet), req.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	setHeaders(httpReq, req.Headers)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	if err := p.fs.MkdirAll(filepath.Dir(req.FilePath), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	// one partial file per transfer, even when two downloads share a target
	out, err := afero.TempFile(p.fs, filepath.Dir(req.FilePath), filepath.Base(req.FilePath)+".*"+partSuffix)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	part := out.Name()

	t := newTracker(onProgress, resp.ContentLength, p.interval, p.now)
	_, copyErr := io.Copy(&countingWriter{w: out, t: t}, resp.Body)
	closeErr := out.Close()
	if err := cmp.Or(copyErr, closeErr); err != nil {
		_ = p.fs.Remove(part)
		return fmt.Errorf("failed to write to file: %w", err)
	}
	t.flush()

	if err := p.fs.Chmod(part, 0644); err != nil {
		_ = p.fs.Remove(part)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := p.fs.Rename(part, req.FilePath); err != nil {
		_ = p.fs.Remove(part)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	zap.L().Info("download finished",
		zap.String("path", req.FilePath),
		zap.String("size", humanize.Bytes(uint64(t.done))),
		zap.Duration("elapsed", p.now().Sub(t.start)))
	return nil
}

// Upload streams req.FilePath to req.URL and returns the response body
func (p *Plugin) Upload(ctx context.Context, req TransferRequest, onProgress ProgressFunc) (string, error) {
	if req.URL == "" || req.FilePath == "" {
		return "", fmt.Errorf("url and filePath are required")
	}

	f, err := p.fs.Open(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("unable to stat file: %w", err)
	}

	t := newTracker(onProgress, info.Size(), p.interval, p.now)
	httpReq, err := http.NewRequestWithContext(ctx, cmp.Or(strings.ToUpper(req.Method), http.MethodPost), req.URL, &countingReader{r: f, t: t})
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.ContentLength = info.Size()
	setHeaders(httpReq, req.Headers)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	t.flush()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("upload failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	zap.L().Info("upload finished",
		zap.String("path", req.FilePath),
		zap.String("size", humanize.Bytes(uint64(info.Size()))))
	return string(body), nil
}

// Fetch implements music.Transfer on top of Download
func (p *Plugin) Fetch(ctx context.Context, url, path string, headers map[string]string, progress music.ProgressFunc) error {
	var onProgress ProgressFunc
	if progress != nil {
		onProgress = func(pr Progress) { progress(pr.ProgressTotal, pr.Total) }
	}
	return p.Download(ctx, TransferRequest{URL: url, FilePath: path, Headers: headers}, onProgress)
}

// Ensure Plugin implements music.Transfer
var _ music.Transfer = (*Plugin)(nil)

func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}
