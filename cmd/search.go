package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"flacdesk/domain/music"
	"flacdesk/infrastructure/prompt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	searchPage int
	searchSize int
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search the FLAC catalogue",
	Long: `Searches the catalogue and prints one page of matching tracks.

The ID column is what link and download expect.

Example:
  flacdesk search "blue in green"
  flacdesk search jazz --page 2 --size 50`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page")
	searchCmd.Flags().IntVar(&searchSize, "size", 20, "Results per page")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, prompt.DefaultPrompter, os.Stdout)
	if err != nil {
		return err
	}

	return RunSearchWithDependencies(cmd.Context(), deps.Catalogue, strings.Join(args, " "), searchPage, searchSize, os.Stdout)
}

// RunSearchWithDependencies runs the search command with injected dependencies (for testing)
func RunSearchWithDependencies(ctx context.Context, catalogue music.Catalogue, keyword string, page, size int, output io.Writer) error {
	if strings.TrimSpace(keyword) == "" {
		return fmt.Errorf("keyword is required")
	}
	if page < 1 || size < 1 {
		return fmt.Errorf("page and size must be positive")
	}

	list, err := catalogue.Search(ctx, keyword, page, size)
	if err != nil {
		return err
	}

	if len(list.List) == 0 {
		fmt.Fprintf(output, "No tracks found for %q\n", keyword)
		return nil
	}

	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tARTIST\tALBUM\tQUALITY")
	for _, m := range list.List {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Artist(), m.AlbumName, qualities(m))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, mutedStyle.Render(fmt.Sprintf("Page %d: showing %d of %s tracks",
		page, len(list.List), humanize.Comma(int64(list.Total)))))
	return nil
}

func qualities(m music.Music) string {
	var q []string
	if m.HasSQ {
		q = append(q, "SQ")
	}
	if m.HasHQ {
		q = append(q, "HQ")
	}
	if m.HasMV {
		q = append(q, "MV")
	}
	if len(q) == 0 {
		return "-"
	}
	return strings.Join(q, ",")
}
