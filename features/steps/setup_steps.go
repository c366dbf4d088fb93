//go:build integration

package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flacdesk/cmd"
	"flacdesk/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements prompt.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		return defaultValue, nil
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	if response == "" {
		return defaultValue, nil
	}
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func (m *MockPrompter) Path(message string, defaultValue string) (string, error) {
	return m.Input(message, defaultValue)
}

func (m *MockPrompter) MultiPath(message string, defaultValue string) ([]string, error) {
	path, err := m.Input(message, defaultValue)
	if err != nil || path == "" {
		return nil, err
	}
	return []string{path}, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.setupCancelled = false
		testCtx.originalContent = ""
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		// Cleanup temp directory
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, testCtx.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, testCtx.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the config should have bridge port (\d+)$`, testCtx.theConfigShouldHaveBridgePort)
	ctx.Step(`^the config should have download directory "([^"]*)"$`, testCtx.theConfigShouldHaveDownloadDirectory)
	ctx.Step(`^the config should have base_url "([^"]*)"$`, testCtx.theConfigShouldHaveBaseURL)
	ctx.Step(`^the http scope should allow "([^"]*)"$`, testCtx.theHTTPScopeShouldAllow)
	ctx.Step(`^the config should have an allowed origin "([^"]*)"$`, testCtx.theConfigShouldHaveAnAllowedOrigin)
	ctx.Step(`^the config should allow the shell program "([^"]*)"$`, testCtx.theConfigShouldAllowTheShellProgram)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	// Just ensure the config path directory exists but no config file
	configDir := filepath.Dir(s.configPath)
	return os.MkdirAll(configDir, 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	configDir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	content := `host:
  port: 4100
flac:
  base_url: "https://original.example.com"
download:
  directory: "/original/music"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	prompter := NewMockPrompter(inputs, confirms)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, io.Discard)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter([]string{}, []bool{confirm})

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, io.Discard)
	if !confirm {
		s.setupCancelled = true
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	confirm := strings.ToLower(confirmation) == "y"
	inputs, confirms := parseInputTable(table)

	// Prepend the overwrite confirmation
	allConfirms := append([]bool{confirm}, confirms...)
	prompter := NewMockPrompter(inputs, allConfirms)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, io.Discard)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func parseInputTable(table *godog.Table) ([]string, []bool) {
	var inputs []string
	var confirms []bool

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		prompt := strings.ToLower(row.Cells[0].Value)
		value := row.Cells[1].Value

		// Yes/no prompts start with "add" or "allow"
		if strings.HasPrefix(prompt, "add") || strings.HasPrefix(prompt, "allow") {
			confirms = append(confirms, strings.ToLower(value) == "y")
		} else {
			inputs = append(inputs, value)
		}
	}

	return inputs, confirms
}

func (s *setupContext) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveBridgePort(expected int) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Host.Port != expected {
		return fmt.Errorf("expected port %d, got %d", expected, cfg.Host.Port)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveDownloadDirectory(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Download.Directory != expected {
		return fmt.Errorf("expected download directory %q, got %q", expected, cfg.Download.Directory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveBaseURL(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Flac.BaseURL != expected {
		return fmt.Errorf("expected base_url %q, got %q", expected, cfg.Flac.BaseURL)
	}
	return nil
}

func (s *setupContext) theHTTPScopeShouldAllow(pattern string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	for _, p := range cfg.HTTP.Scope {
		if p == pattern {
			return nil
		}
	}
	return fmt.Errorf("scope pattern %q not found in %v", pattern, cfg.HTTP.Scope)
}

func (s *setupContext) theConfigShouldHaveAnAllowedOrigin(origin string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	for _, o := range cfg.Host.AllowedOrigins {
		if o == origin {
			return nil
		}
	}
	return fmt.Errorf("origin %q not found in %v", origin, cfg.Host.AllowedOrigins)
}

func (s *setupContext) theConfigShouldAllowTheShellProgram(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	for _, sc := range cfg.Shell.Scope {
		if sc.Name == name {
			return nil
		}
	}
	return fmt.Errorf("shell program %q not found in %v", name, cfg.Shell.Scope)
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled")
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
