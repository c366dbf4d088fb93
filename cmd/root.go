package cmd

import (
	"fmt"
	"os"

	"flacdesk/infrastructure/config"
	"flacdesk/infrastructure/logging"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	cfg       *config.Config
	cfgErr    error
	syncLogs  = func() {}
	verbosity string
)

var rootCmd = &cobra.Command{
	Use:   "flacdesk",
	Short: "Desktop backend for searching and downloading FLAC tracks",
	Long: `flacdesk hosts the command bridge used by the flacdesk front-end and
offers the same features on the command line:

  - Serve the WebSocket bridge with the upload, dialog, http and shell plugins
  - Check whether a path already exists before writing to it
  - Search the FLAC catalogue, resolve download links and redeem unlock codes
  - Download tracks without clobbering existing files

Example:
  flacdesk serve --port 4100
  flacdesk download --id 0039MnYb0qxYhV --name "Song" --singer "Artist" --code ABCD`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	syncLogs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&verbosity, "log-level", "", "override the configured log level")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	cfg, cfgErr = config.LoadOrDefault(cfgFile)
	if cfgErr != nil {
		// Commands that need config report cfgErr themselves
		cfg = nil
		return
	}

	if verbosity != "" {
		cfg.Log.Level = verbosity
	}
	if _, sync, err := logging.New(cfg.Log); err == nil {
		syncLogs = sync
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", cfgFile, cfgErr)
		}
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
