package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"flacdesk/infrastructure/config"
	"flacdesk/infrastructure/host"
	"flacdesk/infrastructure/prompt"

	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the command bridge for the front-end",
	Long: `Starts the WebSocket bridge the front-end webview connects to.

The bridge registers the upload, dialog, http and shell plugins together
with the file_exists command. Its URL is printed once it is listening.
Dialogs are shown as prompts on this terminal.

Example:
  flacdesk serve
  flacdesk serve --port 4100`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", -1, "Bridge port (0 picks a free port, default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if servePort >= 0 {
		cfg.Host.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunServeWithDependencies(ctx, cfg, prompt.DefaultPrompter, os.Stdout)
}

// RunServeWithDependencies serves the bridge until ctx is cancelled (for testing)
func RunServeWithDependencies(ctx context.Context, cfg *config.Config, prompter prompt.Prompter, output io.Writer) error {
	deps, err := NewDependencies(cfg, prompter, output)
	if err != nil {
		return err
	}

	rt, err := deps.Builder(
		host.WithAddress(cfg.Host.Address),
		host.WithPort(cfg.Host.Port),
		host.WithAllowedOrigins(cfg.Host.AllowedOrigins...),
		host.WithOnReady(func(url string) {
			fmt.Fprintf(output, "%s %s\n", successStyle.Render("Bridge ready:"), url)
		}),
	).Build()
	if err != nil {
		return err
	}

	for _, name := range rt.Commands() {
		fmt.Fprintln(output, mutedStyle.Render("  "+name))
	}

	return rt.Run(ctx)
}
