package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"

	"flacdesk/infrastructure/host"

	"go.uber.org/zap"
)

// PluginName is the name the plugin registers under
const PluginName = "shell"

var (
	// ErrNotAllowed is returned when a program or open target is outside the scope
	ErrNotAllowed = errors.New("not allowed by shell scope")

	openPattern = regexp.MustCompile(`^((mailto:\w+)|(tel:\w+)|(https?://\w+)).+`)
)

// Command is one program the front-end may execute
type Command struct {
	Name      string
	Cmd       string
	Args      []string
	AllowArgs bool
}

// ExecuteRequest is the argument of the execute command
type ExecuteRequest struct {
	Program string      `json:"program"`
	Args    []string    `json:"args"`
	Options ExecOptions `json:"options"`
}

// ExecOptions configures the child process
type ExecOptions struct {
	Cwd string            `json:"cwd"`
	Env map[string]string `json:"env"`
}

// Output is the result of a finished process
type Output struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// OpenRequest is the argument of the open command
type OpenRequest struct {
	Path string `json:"path"`
}

// Opener launches the platform handler for a target
type Opener func(ctx context.Context, target string) error

// Plugin runs scoped programs and opens links
type Plugin struct {
	scope  map[string]Command
	opener Opener
}

// Option is a functional option for configuring Plugin
type Option func(*Plugin)

// WithOpener sets a custom opener (for testing)
func WithOpener(o Opener) Option {
	return func(p *Plugin) {
		p.opener = o
	}
}

// New creates the shell plugin allowing only the given commands
func New(commands []Command, opts ...Option) *Plugin {
	p := &Plugin{
		scope:  make(map[string]Command, len(commands)),
		opener: systemOpener,
	}
	for _, c := range commands {
		p.scope[c.Name] = c
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
		"execute": host.Typed(func(ctx context.Context, _ *host.Invocation, req ExecuteRequest) (any, error) {
			return p.Execute(ctx, req)
		}),
		"open": host.Typed(func(ctx context.Context, _ *host.Invocation, req OpenRequest) (any, error) {
			return nil, p.Open(ctx, req.Path)
		}),
	}
}

// Execute runs a scoped program to completion. A non-zero exit is reported in Output.Code, not as an error.
func (p *Plugin) Execute(ctx context.Context, req ExecuteRequest) (*Output, error) {
	c, ok := p.scope[req.Program]
	if !ok {
		zap.L().Warn("shell execute blocked", zap.String("program", req.Program))
		return nil, fmt.Errorf("%w: program %q", ErrNotAllowed, req.Program)
	}
	if len(req.Args) > 0 && !c.AllowArgs {
		return nil, fmt.Errorf("%w: program %q does not accept arguments", ErrNotAllowed, req.Program)
	}

	args := append(append([]string(nil), c.Args...), req.Args...)
	cmd := exec.CommandContext(ctx, c.Cmd, args...)
	cmd.Dir = req.Options.Cwd
	if len(req.Options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Options.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
	default:
		return nil, fmt.Errorf("failed to run %s: %w", req.Program, err)
	}

	code := cmd.ProcessState.ExitCode()
	zap.L().Debug("shell execute finished", zap.String("program", req.Program), zap.Int("code", code))

	return &Output{
		Code:   code,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}, nil
}

// Open hands a link to the platform's default handler
func (p *Plugin) Open(ctx context.Context, target string) error {
	if !openPattern.MatchString(target) {
		zap.L().Warn("shell open blocked", zap.String("target", target))
		return fmt.Errorf("%w: cannot open %q", ErrNotAllowed, target)
	}
	return p.opener(ctx, target)
}

// systemOpener detaches the handler so it outlives the invocation
func systemOpener(_ context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
