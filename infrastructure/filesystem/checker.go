package filesystem

import (
	"errors"
	"io/fs"

	"flacdesk/domain/pathcheck"

	"github.com/spf13/afero"
)

// Checker implements pathcheck.FileChecker on top of an afero filesystem
type Checker struct {
	fs afero.Fs
}

// CheckerOption is a functional option for configuring Checker
type CheckerOption func(*Checker)

// WithFs sets a custom filesystem (for testing)
func WithFs(fsys afero.Fs) CheckerOption {
	return func(c *Checker) {
		c.fs = fsys
	}
}

// NewChecker creates a new filesystem checker backed by the OS filesystem
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{}
	for _, opt := range opts {
		opt(c)
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	return c
}

// Exists returns true if a file or directory exists at path
func (c *Checker) Exists(path string) bool {
	state, _ := c.Probe(path)
	return state == pathcheck.Present
}

// Probe stats the path without following it any further than the OS does
func (c *Checker) Probe(path string) (pathcheck.State, error) {
	_, err := c.fs.Stat(path)
	switch {
	case err == nil:
		return pathcheck.Present, nil
	case errors.Is(err, fs.ErrNotExist):
		return pathcheck.Absent, nil
	default:
		return pathcheck.Unknown, err
	}
}

// Fs returns the underlying filesystem
func (c *Checker) Fs() afero.Fs {
	return c.fs
}

// Ensure Checker implements pathcheck.FileChecker
var _ pathcheck.FileChecker = (*Checker)(nil)
