package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when --config is not given
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Host     HostConfig     `yaml:"host"`
	HTTP     HTTPConfig     `yaml:"http"`
	Shell    ShellConfig    `yaml:"shell"`
	Upload   UploadConfig   `yaml:"upload"`
	Flac     FlacConfig     `yaml:"flac"`
	Download DownloadConfig `yaml:"download"`
	Log      LogConfig      `yaml:"log"`
}

// HostConfig contains settings for the front-end bridge
type HostConfig struct {
	Address        string   `yaml:"address"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig contains the outbound request scope for the http plugin
type HTTPConfig struct {
	Scope   []string      `yaml:"scope"`
	Timeout time.Duration `yaml:"timeout"`
}

// ShellConfig contains the programs the shell plugin may run
type ShellConfig struct {
	Scope []ShellCommandConfig `yaml:"scope"`
}

// ShellCommandConfig represents one allowed program
type ShellCommandConfig struct {
	Name      string   `yaml:"name"`
	Cmd       string   `yaml:"cmd"`
	Args      []string `yaml:"args"`
	AllowArgs bool     `yaml:"allow_args"`
}

// UploadConfig contains transfer settings
type UploadConfig struct {
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// FlacConfig contains settings for the FLAC catalogue API
type FlacConfig struct {
	BaseURL string `yaml:"base_url"`
	Quality string `yaml:"quality"`
}

// DownloadConfig contains where downloaded tracks are written
type DownloadConfig struct {
	Directory string `yaml:"directory"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Host: HostConfig{
			Address: "127.0.0.1",
		},
		HTTP: HTTPConfig{
			Scope:   []string{"https://api.flac.life/*"},
			Timeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			ProgressInterval: 100 * time.Millisecond,
		},
		Flac: FlacConfig{
			BaseURL: "https://api.flac.life",
			Quality: "flac",
		},
		Download: DownloadConfig{
			Directory: "downloads",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration from the specified YAML file.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads the config file, falling back to defaults when it does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Host.Port < 0 || c.Host.Port > 65535 {
		return fmt.Errorf("host port %d out of range", c.Host.Port)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	if c.Flac.BaseURL == "" {
		return fmt.Errorf("flac base_url is required")
	}

	seen := make(map[string]bool)
	for _, sc := range c.Shell.Scope {
		if sc.Name == "" || sc.Cmd == "" {
			return fmt.Errorf("shell scope entries need both name and cmd")
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate shell scope entry %q", sc.Name)
		}
		seen[sc.Name] = true
	}

	return nil
}
