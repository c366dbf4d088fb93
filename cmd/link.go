package cmd

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"flacdesk/domain/music"
	"flacdesk/infrastructure/prompt"

	"github.com/spf13/cobra"
)

var (
	linkID      string
	linkQuality string
	linkCode    string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Resolve the download URL of a track",
	Long: `Resolves the download URL of a track with an unlock code.

Example:
  flacdesk link --id 0039MnYb0qxYhV --code ABCD
  flacdesk link --id 0039MnYb0qxYhV --code ABCD --quality flac24bit`,
	RunE: runLink,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <code>",
	Short: "Redeem an unlock code",
	Long: `Redeems an unlock code and prints what the service returned.

Example:
  flacdesk unlock ABCD`,
	Args: cobra.ExactArgs(1),
	RunE: runUnlock,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlockCmd)
	linkCmd.Flags().StringVar(&linkID, "id", "", "Track ID from search (required)")
	linkCmd.Flags().StringVar(&linkQuality, "quality", "", "Audio quality (default from config)")
	linkCmd.Flags().StringVar(&linkCode, "code", "", "Unlock code (required)")
	linkCmd.MarkFlagRequired("id")
	linkCmd.MarkFlagRequired("code")
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, prompt.DefaultPrompter, os.Stdout)
	if err != nil {
		return err
	}

	return RunLinkWithDependencies(cmd.Context(), deps.Catalogue, linkID, cmp.Or(linkQuality, cfg.Flac.Quality), linkCode, os.Stdout)
}

// RunLinkWithDependencies runs the link command with injected dependencies (for testing)
func RunLinkWithDependencies(ctx context.Context, catalogue music.Catalogue, songID, quality, code string, output io.Writer) error {
	link, err := catalogue.Link(ctx, songID, quality, code)
	if err != nil {
		return err
	}
	fmt.Fprintln(output, link)
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, prompt.DefaultPrompter, os.Stdout)
	if err != nil {
		return err
	}

	return RunUnlockWithDependencies(cmd.Context(), deps.Catalogue, args[0], os.Stdout)
}

// RunUnlockWithDependencies runs the unlock command with injected dependencies (for testing)
func RunUnlockWithDependencies(ctx context.Context, catalogue music.Catalogue, code string, output io.Writer) error {
	raw, err := catalogue.Unlock(ctx, code)
	if err != nil {
		return err
	}

	fmt.Fprintln(output, successStyle.Render("Unlock code accepted."))
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	fmt.Fprintln(output, buf.String())
	return nil
}
