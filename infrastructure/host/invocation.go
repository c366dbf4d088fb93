package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCommandNotFound is returned when no handler is registered for a command
	ErrCommandNotFound = errors.New("command not found")

	// ErrInvalidArgs is returned when invocation args cannot be decoded
	ErrInvalidArgs = errors.New("invalid command arguments")
)

// Handler serves one command. The returned payload is sent back as JSON.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Plugin is a capability module whose commands are addressed as plugin:<name>|<command>
type Plugin interface {
	Name() string
	Commands() map[string]Handler
}

// EmitFunc pushes an event frame to the caller on the given channel
type EmitFunc func(channel string, payload any) error

// Invocation is a single command call from the front-end
type Invocation struct {
	ID   string
	Cmd  string
	Args json.RawMessage

	emit EmitFunc
}

// Bind decodes the invocation args into v. Missing args leave v untouched.
func (i *Invocation) Bind(v any) error {
	if len(i.Args) == 0 || string(i.Args) == "null" {
		return nil
	}
	if err := json.Unmarshal(i.Args, v); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidArgs, i.Cmd, err)
	}
	return nil
}

// Channel returns the event channel with the given ID.
// An empty ID yields a channel that drops every event.
func (i *Invocation) Channel(id string) *Channel {
	return &Channel{ID: id, emit: i.emit}
}

// Channel streams events for a single invocation, such as transfer progress
type Channel struct {
	ID   string
	emit EmitFunc
}

// Send pushes payload to the caller
func (c *Channel) Send(payload any) error {
	if c == nil || c.ID == "" || c.emit == nil {
		return nil
	}
	return c.emit(c.ID, payload)
}

// Typed adapts a function taking decoded args into a Handler
func Typed[A any](fn func(ctx context.Context, inv *Invocation, args A) (any, error)) Handler {
	return func(ctx context.Context, inv *Invocation) (any, error) {
		var args A
		if err := inv.Bind(&args); err != nil {
			return nil, err
		}
		return fn(ctx, inv, args)
	}
}

// PluginCommand returns the bridge name of a plugin command
func PluginCommand(plugin, command string) string {
	return "plugin:" + plugin + "|" + command
}

// request is the frame sent by the front-end
type request struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Frame kinds
const (
	KindReply = "reply"
	KindEvent = "event"
)

// Reply answers a request with the same ID
type Reply struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Event is pushed on a channel while an invocation is running
type Event struct {
	Kind    string `json:"kind"`
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}
