package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	appdownload "flacdesk/application/download"
	"flacdesk/domain/music"
	"flacdesk/infrastructure/flac"
	"flacdesk/infrastructure/prompt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	downloadID      string
	downloadName    string
	downloadSingers []string
	downloadQuality string
	downloadCode    string
	downloadDir     string
	downloadYes     bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a track as FLAC",
	Long: `Downloads a track into the download directory as "<name> - <singers>.flac".

If that file already exists you are asked before it is replaced.
Use --yes to replace it without asking.

Example:
  flacdesk download --id 0039MnYb0qxYhV --name "Song" --singer "Artist" --code ABCD
  flacdesk download --id 0039MnYb0qxYhV --name "Song" --code ABCD --dir ~/Music --yes`,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadID, "id", "", "Track ID from search (required)")
	downloadCmd.Flags().StringVar(&downloadName, "name", "", "Track name used for the file name (required)")
	downloadCmd.Flags().StringSliceVar(&downloadSingers, "singer", nil, "Singer used for the file name (repeatable)")
	downloadCmd.Flags().StringVar(&downloadQuality, "quality", "", "Audio quality (default from config)")
	downloadCmd.Flags().StringVar(&downloadCode, "code", "", "Unlock code (required)")
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "", "Target directory (default from config)")
	downloadCmd.Flags().BoolVarP(&downloadYes, "yes", "y", false, "Replace existing files without asking")
	downloadCmd.MarkFlagRequired("id")
	downloadCmd.MarkFlagRequired("name")
	downloadCmd.MarkFlagRequired("code")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	var prompter prompt.Prompter = prompt.DefaultPrompter
	if downloadYes {
		prompter = prompt.Static{Answer: true}
	}

	deps, err := NewDependencies(cfg, prompter, os.Stdout)
	if err != nil {
		return err
	}

	svc := appdownload.NewService(deps.Catalogue, deps.Upload, deps.Paths, prompter, flac.Headers(nil), os.Stdout)
	req := appdownload.Request{
		Music: music.Music{
			ID:      downloadID,
			Name:    downloadName,
			Singers: downloadSingers,
		},
		Quality:    cmp.Or(downloadQuality, cfg.Flac.Quality),
		UnlockCode: downloadCode,
		Directory:  cmp.Or(downloadDir, cfg.Download.Directory),
	}

	// Progress redraws a single line, which only makes sense on a terminal
	showProgress := term.IsTerminal(int(os.Stdout.Fd()))
	return RunDownloadWithDependencies(cmd.Context(), svc, req, showProgress, os.Stdout)
}

// RunDownloadWithDependencies runs the download command with injected dependencies (for testing)
func RunDownloadWithDependencies(ctx context.Context, svc *appdownload.Service, req appdownload.Request, showProgress bool, output io.Writer) error {
	fmt.Fprintf(output, "Downloading %s...\n", req.Music.FileName("flac"))

	var progress music.ProgressFunc
	if showProgress {
		progress = func(done, total int64) {
			if total > 0 {
				fmt.Fprintf(output, "\r  %s / %s", humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
			} else {
				fmt.Fprintf(output, "\r  %s", humanize.Bytes(uint64(done)))
			}
		}
	}

	result, err := svc.Download(ctx, req, progress)
	if errors.Is(err, appdownload.ErrDownloadSkipped) {
		fmt.Fprintln(output, warningStyle.Render("Download skipped, existing file kept."))
		return nil
	}
	if err != nil {
		return err
	}

	if showProgress {
		fmt.Fprintln(output)
	}
	fmt.Fprintln(output, successStyle.Render("Download complete!"))
	fmt.Fprintf(output, "  Path: %s\n", result.Path)
	return nil
}
