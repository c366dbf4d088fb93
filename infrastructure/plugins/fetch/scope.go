package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrOutOfScope is returned when a URL is not covered by the configured scope
var ErrOutOfScope = errors.New("url not allowed by scope")

// Scope is an allow-list of URL glob patterns. `*` matches any run of characters.
type Scope struct {
	patterns []*regexp.Regexp
	raw      []string
}

// NewScope compiles the given glob patterns
func NewScope(globs ...string) (*Scope, error) {
	s := &Scope{}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		re, err := compileGlob(g)
		if err != nil {
			return nil, fmt.Errorf("invalid scope pattern %q: %w", g, err)
		}
		s.patterns = append(s.patterns, re)
		s.raw = append(s.raw, g)
	}
	return s, nil
}

func compileGlob(glob string) (*regexp.Regexp, error) {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// Allow checks rawURL against the scope. Only http and https URLs are ever allowed.
func (s *Scope) Allow(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfScope, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrOutOfScope, u.Scheme)
	}

	for _, re := range s.patterns {
		if re.MatchString(rawURL) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutOfScope, rawURL)
}

// Patterns returns the configured globs
func (s *Scope) Patterns() []string {
	return append([]string(nil), s.raw...)
}
