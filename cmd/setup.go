package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apppathcheck "flacdesk/application/pathcheck"
	"flacdesk/domain/pathcheck"
	"flacdesk/infrastructure/config"
	"flacdesk/infrastructure/filesystem"
	"flacdesk/infrastructure/prompt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up the bridge address, the FLAC
catalogue, the download directory and the programs the shell plugin may run.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(prompt.DefaultPrompter, path, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter prompt.Prompter, configPath string, output io.Writer) error {
	paths := apppathcheck.NewService(filesystem.NewChecker())

	// Check if config already exists
	if _, err := paths.CheckFileExists(configPath); errors.Is(err, pathcheck.ErrFileExists) {
		overwrite, err := prompter.Confirm(filepath.Base(configPath)+" already exists. Overwrite?", false)
		if err != nil {
			return prompt.ErrCancelled
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, headerStyle.Render("Welcome to flacdesk setup!"))
	fmt.Fprintln(output)

	cfg := config.Default()

	steps := []func(prompt.Prompter, *config.Config) error{
		promptHost,
		promptFlac,
		promptDownload,
		promptShell,
		promptLog,
	}
	for _, step := range steps {
		if err := step(prompter, cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, successStyle.Render("Configuration saved to "+configPath))
	return nil
}

func promptHost(prompter prompt.Prompter, cfg *config.Config) error {
	address, err := prompter.Input("Address the bridge listens on?", cfg.Host.Address)
	if err != nil {
		return prompt.ErrCancelled
	}
	if address != "" {
		cfg.Host.Address = address
	}

	port, err := prompter.Input("Bridge port (0 picks a free port)?", strconv.Itoa(cfg.Host.Port))
	if err != nil {
		return prompt.ErrCancelled
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("port must be a number: %q", port)
		}
		cfg.Host.Port = n
	}

	for {
		add, err := prompter.Confirm("Add an allowed front-end origin?", false)
		if err != nil {
			return prompt.ErrCancelled
		}
		if !add {
			break
		}

		origin, err := prompter.Input("  Origin (e.g. http://localhost:1420):", "")
		if err != nil {
			return prompt.ErrCancelled
		}
		if origin == "" {
			return fmt.Errorf("origin is required")
		}
		cfg.Host.AllowedOrigins = append(cfg.Host.AllowedOrigins, origin)
	}

	return nil
}

func promptFlac(prompter prompt.Prompter, cfg *config.Config) error {
	base, err := prompter.Input("FLAC catalogue API URL?", cfg.Flac.BaseURL)
	if err != nil {
		return prompt.ErrCancelled
	}
	if base == "" {
		return fmt.Errorf("API URL is required")
	}
	base = strings.TrimSuffix(base, "/")
	cfg.Flac.BaseURL = base
	cfg.HTTP.Scope = []string{base + "/*"}

	quality, err := prompter.Input("Default download quality?", cfg.Flac.Quality)
	if err != nil {
		return prompt.ErrCancelled
	}
	if quality != "" {
		cfg.Flac.Quality = quality
	}

	return nil
}

func promptDownload(prompter prompt.Prompter, cfg *config.Config) error {
	dir, err := prompter.Path("Where should downloaded tracks go?", cfg.Download.Directory)
	if err != nil {
		return prompt.ErrCancelled
	}
	if dir == "" {
		return fmt.Errorf("download directory is required")
	}
	cfg.Download.Directory = dir
	return nil
}

func promptShell(prompter prompt.Prompter, cfg *config.Config) error {
	for {
		add, err := prompter.Confirm("Allow a program for the shell plugin?", false)
		if err != nil {
			return prompt.ErrCancelled
		}
		if !add {
			return nil
		}

		name, err := prompter.Input("  Name the front-end uses:", "")
		if err != nil {
			return prompt.ErrCancelled
		}
		if name == "" {
			return fmt.Errorf("name is required")
		}

		program, err := prompter.Path("  Program to run:", "")
		if err != nil {
			return prompt.ErrCancelled
		}
		if program == "" {
			return fmt.Errorf("program is required")
		}

		fixed, err := prompter.Input("  Fixed arguments (space separated):", "")
		if err != nil {
			return prompt.ErrCancelled
		}

		allowArgs, err := prompter.Confirm("  Allow the front-end to pass extra arguments?", false)
		if err != nil {
			return prompt.ErrCancelled
		}

		cfg.Shell.Scope = append(cfg.Shell.Scope, config.ShellCommandConfig{
			Name:      name,
			Cmd:       program,
			Args:      strings.Fields(fixed),
			AllowArgs: allowArgs,
		})
	}
}

func promptLog(prompter prompt.Prompter, cfg *config.Config) error {
	level, err := prompter.Input("Log level (debug, info, warn, error)?", cfg.Log.Level)
	if err != nil {
		return prompt.ErrCancelled
	}
	if level != "" {
		cfg.Log.Level = level
	}
	return nil
}
