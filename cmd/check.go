package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"flacdesk/infrastructure/prompt"

	"github.com/spf13/cobra"
)

var checkProbe bool

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Report whether a path already exists",
	Long: `Runs the file_exists command against a path.

A path that does not exist is the success case. When the path exists the
command fails with "the file already exists." and a non-zero exit status,
so scripts can guard a write with it.

Example:
  flacdesk check ~/Music/song.flac && flacdesk download ...
  flacdesk check --probe /root/secret`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkProbe, "probe", false, "Also print whether the filesystem query itself failed")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, prompt.DefaultPrompter, os.Stdout)
	if err != nil {
		return err
	}

	return RunCheckWithDependencies(cmd.Context(), deps, args[0], checkProbe, os.Stdout)
}

// RunCheckWithDependencies dispatches file_exists through the runtime (for testing)
func RunCheckWithDependencies(ctx context.Context, deps *Dependencies, path string, probe bool, output io.Writer) error {
	rt, err := deps.Builder().Build()
	if err != nil {
		return err
	}

	if probe {
		state, err := deps.Paths.Probe(path)
		line := "state: " + state.String()
		if err != nil {
			line += " (" + err.Error() + ")"
		}
		fmt.Fprintln(output, mutedStyle.Render(line))
	}

	msg, err := rt.Invoke(ctx, FileExistsCommand, fileExistsArgs{Value: &path}, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(output, successStyle.Render(fmt.Sprint(msg)))
	return nil
}
