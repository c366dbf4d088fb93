package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Errors for config management
var (
	ErrProgramNotFound = errors.New("program not found")
	ErrOriginNotFound  = errors.New("origin not found")
	ErrPatternNotFound = errors.New("scope pattern not found")
	ErrDuplicateKey    = errors.New("entry already exists")
	ErrInvalidOrigin   = errors.New("invalid origin")
)

// ConfigManager provides CRUD operations for the plugin scopes
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// --- Shell program CRUD ---

// AddProgram allows a program for the shell plugin
func (m *ConfigManager) AddProgram(entry ShellCommandConfig) error {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.Cmd = strings.TrimSpace(entry.Cmd)

	if entry.Name == "" {
		return fmt.Errorf("program name is required")
	}
	if entry.Cmd == "" {
		return fmt.Errorf("program command is required")
	}

	if m.programIndex(entry.Name) >= 0 {
		return fmt.Errorf("%w: program %q", ErrDuplicateKey, entry.Name)
	}

	m.config.Shell.Scope = append(m.config.Shell.Scope, entry)
	return Save(m.config, m.configPath)
}

// ListPrograms returns the allowed programs sorted by name
func (m *ConfigManager) ListPrograms() []ShellCommandConfig {
	result := slices.Clone(m.config.Shell.Scope)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// GetProgram gets an allowed program by name
func (m *ConfigManager) GetProgram(name string) (ShellCommandConfig, error) {
	i := m.programIndex(name)
	if i < 0 {
		return ShellCommandConfig{}, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	return m.config.Shell.Scope[i], nil
}

// RemoveProgram removes an allowed program by name
func (m *ConfigManager) RemoveProgram(name string) error {
	i := m.programIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}

	m.config.Shell.Scope = slices.Delete(m.config.Shell.Scope, i, i+1)
	return Save(m.config, m.configPath)
}

// UpdateProgram changes the command or the argument policy of a program.
// Empty cmd keeps the current command; nil args keep the current arguments.
func (m *ConfigManager) UpdateProgram(name, cmd string, args []string, allowArgs *bool) error {
	i := m.programIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}

	entry := &m.config.Shell.Scope[i]
	if cmd = strings.TrimSpace(cmd); cmd != "" {
		entry.Cmd = cmd
	}
	if args != nil {
		entry.Args = args
	}
	if allowArgs != nil {
		entry.AllowArgs = *allowArgs
	}
	return Save(m.config, m.configPath)
}

func (m *ConfigManager) programIndex(name string) int {
	name = strings.TrimSpace(name)
	return slices.IndexFunc(m.config.Shell.Scope, func(c ShellCommandConfig) bool {
		return c.Name == name
	})
}

// --- Allowed origin CRUD ---

// AddOrigin allows a front-end origin to connect to the bridge
func (m *ConfigManager) AddOrigin(origin string) error {
	origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
	if !isValidOrigin(origin) {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}

	if slices.Contains(m.config.Host.AllowedOrigins, origin) {
		return fmt.Errorf("%w: origin %q", ErrDuplicateKey, origin)
	}

	m.config.Host.AllowedOrigins = append(m.config.Host.AllowedOrigins, origin)
	return Save(m.config, m.configPath)
}

// ListOrigins returns the allowed origins
func (m *ConfigManager) ListOrigins() []string {
	return slices.Clone(m.config.Host.AllowedOrigins)
}

// RemoveOrigin removes an allowed origin
func (m *ConfigManager) RemoveOrigin(origin string) error {
	origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
	i := slices.Index(m.config.Host.AllowedOrigins, origin)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrOriginNotFound, origin)
	}

	m.config.Host.AllowedOrigins = slices.Delete(m.config.Host.AllowedOrigins, i, i+1)
	return Save(m.config, m.configPath)
}

// --- HTTP scope CRUD ---

// AddPattern adds a URL glob to the http plugin scope
func (m *ConfigManager) AddPattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if !strings.HasPrefix(pattern, "http://") && !strings.HasPrefix(pattern, "https://") {
		return fmt.Errorf("scope pattern must start with http:// or https://: %q", pattern)
	}

	if slices.Contains(m.config.HTTP.Scope, pattern) {
		return fmt.Errorf("%w: pattern %q", ErrDuplicateKey, pattern)
	}

	m.config.HTTP.Scope = append(m.config.HTTP.Scope, pattern)
	return Save(m.config, m.configPath)
}

// ListPatterns returns the http plugin scope
func (m *ConfigManager) ListPatterns() []string {
	return slices.Clone(m.config.HTTP.Scope)
}

// RemovePattern removes a URL glob from the http plugin scope
func (m *ConfigManager) RemovePattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	i := slices.Index(m.config.HTTP.Scope, pattern)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPatternNotFound, pattern)
	}

	m.config.HTTP.Scope = slices.Delete(m.config.HTTP.Scope, i, i+1)
	return Save(m.config, m.configPath)
}

// isValidOrigin accepts scheme://host[:port] without a path
func isValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != "" && (u.Path == "" || u.Path == "/") && u.RawQuery == ""
}
