package host

import (
	"errors"
	"fmt"
	"strings"
)

// Option is a functional option for configuring the runtime
type Option func(*options)

type options struct {
	address        string
	port           int
	allowedOrigins []string
	onReady        func(url string)
}

// WithAddress sets the interface the bridge listens on
func WithAddress(address string) Option {
	return func(o *options) {
		o.address = address
	}
}

// WithPort sets the bridge port. Zero picks a free port.
func WithPort(port int) Option {
	return func(o *options) {
		o.port = port
	}
}

// WithAllowedOrigins restricts which front-end origins may connect
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) {
		o.allowedOrigins = append(o.allowedOrigins, origins...)
	}
}

// WithOnReady registers a callback receiving the bridge URL once it is listening
func WithOnReady(fn func(url string)) Option {
	return func(o *options) {
		o.onReady = fn
	}
}

// Builder collects plugins and command handlers before the runtime starts
type Builder struct {
	opts     options
	plugins  []Plugin
	handlers map[string]Handler
	errs     []error
}

// NewBuilder creates a builder with the given options
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		opts:     options{address: "127.0.0.1"},
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Plugin activates a capability plugin
func (b *Builder) Plugin(p Plugin) *Builder {
	b.plugins = append(b.plugins, p)
	return b
}

// InvokeHandler registers an application command
func (b *Builder) InvokeHandler(name string, h Handler) *Builder {
	switch {
	case name == "":
		b.errs = append(b.errs, fmt.Errorf("command name is required"))
	case strings.HasPrefix(name, "plugin:"):
		b.errs = append(b.errs, fmt.Errorf("command %q uses the reserved plugin: prefix", name))
	case h == nil:
		b.errs = append(b.errs, fmt.Errorf("command %q has no handler", name))
	default:
		if _, dup := b.handlers[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("command %q registered twice", name))
		}
		b.handlers[name] = h
	}
	return b
}

// Build validates the registrations and returns a runtime ready to run
func (b *Builder) Build() (*Runtime, error) {
	errs := append([]error(nil), b.errs...)

	commands := make(map[string]Handler, len(b.handlers))
	for name, h := range b.handlers {
		commands[name] = h
	}

	seen := make(map[string]bool)
	for _, p := range b.plugins {
		name := p.Name()
		if name == "" {
			errs = append(errs, fmt.Errorf("plugin name is required"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("plugin %q registered twice", name))
			continue
		}
		seen[name] = true

		for cmd, h := range p.Commands() {
			if h == nil {
				errs = append(errs, fmt.Errorf("plugin %q command %q has no handler", name, cmd))
				continue
			}
			commands[PluginCommand(name, cmd)] = h
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid runtime: %w", err)
	}

	return newRuntime(b.opts, commands), nil
}
