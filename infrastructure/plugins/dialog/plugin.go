package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"flacdesk/domain/pathcheck"
	"flacdesk/infrastructure/host"
	"flacdesk/infrastructure/prompt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
)

// PluginName is the name the plugin registers under
const PluginName = "dialog"

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Filter restricts selectable files by extension
type Filter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// MessageRequest is the argument of the message command
type MessageRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// AskRequest is the argument of the ask and confirm commands
type AskRequest struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	OkLabel     string `json:"okLabel"`
	CancelLabel string `json:"cancelLabel"`
}

// OpenRequest is the argument of the open command
type OpenRequest struct {
	Title       string   `json:"title"`
	DefaultPath string   `json:"defaultPath"`
	Directory   bool     `json:"directory"`
	Multiple    bool     `json:"multiple"`
	Filters     []Filter `json:"filters"`
}

// SaveRequest is the argument of the save command
type SaveRequest struct {
	Title       string   `json:"title"`
	DefaultPath string   `json:"defaultPath"`
	Filters     []Filter `json:"filters"`
}

// Plugin renders dialogs as terminal prompts. Dialogs are modal: one runs at a time.
type Plugin struct {
	prompter prompt.Prompter
	checker  pathcheck.FileChecker
	fs       afero.Fs
	output   io.Writer

	mu sync.Mutex
}

// Option is a functional option for configuring Plugin
type Option func(*Plugin)

// WithFs sets the filesystem used to inspect selected paths.
// By default the checker's filesystem is used when it exposes one.
func WithFs(fsys afero.Fs) Option {
	return func(p *Plugin) {
		p.fs = fsys
	}
}

// WithOutput sets where messages are printed
func WithOutput(w io.Writer) Option {
	return func(p *Plugin) {
		p.output = w
	}
}

// New creates the dialog plugin
func New(prompter prompt.Prompter, checker pathcheck.FileChecker, opts ...Option) *Plugin {
	p := &Plugin{
		prompter: prompter,
		checker:  checker,
		output:   os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fs == nil {
		if fc, ok := checker.(interface{ Fs() afero.Fs }); ok {
			p.fs = fc.Fs()
		} else {
			p.fs = afero.NewOsFs()
		}
	}
	return p
}

// Name implements host.Plugin
func (p *Plugin) Name() string {
	return PluginName
}

// Commands implements host.Plugin
func (p *Plugin) Commands() map[string]host.Handler {
	ask := host.Typed(func(_ context.Context, _ *host.Invocation, req AskRequest) (any, error) {
		return p.Ask(req)
	})
	return map[string]host.Handler{
		"message": host.Typed(func(_ context.Context, _ *host.Invocation, req MessageRequest) (any, error) {
			return nil, p.Message(req)
		}),
		"ask":     ask,
		"confirm": ask,
		"open": host.Typed(func(_ context.Context, _ *host.Invocation, req OpenRequest) (any, error) {
			paths, err := p.Open(req)
			if err != nil || paths == nil {
				return nil, err
			}
			if req.Multiple {
				return paths, nil
			}
			return paths[0], nil
		}),
		"save": host.Typed(func(_ context.Context, _ *host.Invocation, req SaveRequest) (any, error) {
			path, err := p.Save(req)
			if err != nil || path == "" {
				return nil, err
			}
			return path, nil
		}),
	}
}

// Message prints a styled message
func (p *Plugin) Message(req MessageRequest) error {
	style := infoStyle
	switch strings.ToLower(req.Kind) {
	case "warning":
		style = warningStyle
	case "error":
		style = errorStyle
	}

	title := req.Title
	if title == "" {
		title = "flacdesk"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.output, "%s %s\n", style.Render(title), req.Message)
	return err
}

// Ask returns true when the user accepts
func (p *Plugin) Ask(req AskRequest) (bool, error) {
	msg := req.Message
	if req.Title != "" {
		msg = req.Title + ": " + msg
	}
	if req.OkLabel != "" || req.CancelLabel != "" {
		msg = fmt.Sprintf("%s [%s/%s]", msg, labelOr(req.OkLabel, "Ok"), labelOr(req.CancelLabel, "Cancel"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.prompter.Confirm(msg, true)
	if errors.Is(err, prompt.ErrCancelled) {
		return false, nil
	}
	return ok, err
}

// Open returns the selected paths, or nil when the user cancelled
func (p *Plugin) Open(req OpenRequest) ([]string, error) {
	title := labelOr(req.Title, "Select a file:")
	if req.Directory {
		title = labelOr(req.Title, "Select a folder:")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		paths []string
		err   error
	)
	if req.Multiple {
		paths, err = p.prompter.MultiPath(title, req.DefaultPath)
	} else {
		var path string
		path, err = p.prompter.Path(title, req.DefaultPath)
		if path != "" {
			paths = []string{path}
		}
	}
	if errors.Is(err, prompt.ErrCancelled) || (err == nil && len(paths) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := p.validateOpen(path, req); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (p *Plugin) validateOpen(path string, req OpenRequest) error {
	if !p.checker.Exists(path) {
		return fmt.Errorf("%s does not exist", path)
	}

	info, err := p.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to inspect %s: %w", path, err)
	}
	if req.Directory != info.IsDir() {
		if req.Directory {
			return fmt.Errorf("%s is not a directory", path)
		}
		return fmt.Errorf("%s is a directory", path)
	}
	if !req.Directory && !matchFilters(path, req.Filters) {
		return fmt.Errorf("%s does not match the allowed file types", path)
	}
	return nil
}

// Save returns the chosen path, or "" when the user cancelled or declined to overwrite
func (p *Plugin) Save(req SaveRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, err := p.prompter.Path(labelOr(req.Title, "Save as:"), req.DefaultPath)
	if errors.Is(err, prompt.ErrCancelled) || (err == nil && path == "") {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if filepath.Ext(path) == "" {
		if ext := defaultExtension(req.Filters); ext != "" {
			path += "." + ext
		}
	}
	if !matchFilters(path, req.Filters) {
		return "", fmt.Errorf("%s does not match the allowed file types", path)
	}

	if p.checker.Exists(path) {
		overwrite, err := p.prompter.Confirm(fmt.Sprintf("%s already exists. Overwrite?", filepath.Base(path)), false)
		if errors.Is(err, prompt.ErrCancelled) || (err == nil && !overwrite) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}
	return path, nil
}

func matchFilters(path string, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range filters {
		if slices.ContainsFunc(f.Extensions, func(e string) bool {
			e = strings.ToLower(strings.TrimPrefix(e, "."))
			return e == "*" || e == ext
		}) {
			return true
		}
	}
	return false
}

func defaultExtension(filters []Filter) string {
	for _, f := range filters {
		for _, e := range f.Extensions {
			if e = strings.TrimPrefix(e, "."); e != "" && e != "*" {
				return e
			}
		}
	}
	return ""
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
