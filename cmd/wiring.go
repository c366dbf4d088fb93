package cmd

import (
	"context"
	"fmt"
	"io"

	apppathcheck "flacdesk/application/pathcheck"
	"flacdesk/infrastructure/config"
	"flacdesk/infrastructure/filesystem"
	"flacdesk/infrastructure/flac"
	"flacdesk/infrastructure/host"
	"flacdesk/infrastructure/plugins/dialog"
	"flacdesk/infrastructure/plugins/fetch"
	"flacdesk/infrastructure/plugins/shell"
	"flacdesk/infrastructure/plugins/upload"
	"flacdesk/infrastructure/prompt"
)

// FileExistsCommand is the bridge name of the path existence check
const FileExistsCommand = "file_exists"

// Dependencies holds the components shared by the bridge and the CLI
type Dependencies struct {
	Paths     *apppathcheck.Service
	HTTP      *fetch.Plugin
	Upload    *upload.Plugin
	Dialog    *dialog.Plugin
	Shell     *shell.Plugin
	Catalogue *flac.Client
}

// NewDependencies builds every plugin from config
func NewDependencies(cfg *config.Config, prompter prompt.Prompter, output io.Writer) (*Dependencies, error) {
	scope, err := fetch.NewScope(cfg.HTTP.Scope...)
	if err != nil {
		return nil, fmt.Errorf("invalid http scope: %w", err)
	}
	httpPlugin := fetch.New(scope, fetch.WithTimeout(cfg.HTTP.Timeout))

	commands := make([]shell.Command, 0, len(cfg.Shell.Scope))
	for _, sc := range cfg.Shell.Scope {
		commands = append(commands, shell.Command{
			Name:      sc.Name,
			Cmd:       sc.Cmd,
			Args:      sc.Args,
			AllowArgs: sc.AllowArgs,
		})
	}

	checker := filesystem.NewChecker()

	return &Dependencies{
		Paths: apppathcheck.NewService(checker),
		HTTP:  httpPlugin,
		// Track hosts vary per link, so transfers are not limited to the http scope
		Upload: upload.New(nil, upload.WithProgressInterval(cfg.Upload.ProgressInterval)),
		Dialog: dialog.New(prompter, checker, dialog.WithOutput(output)),
		Shell:  shell.New(commands),
		Catalogue: flac.NewClient(
			flac.WithBaseURL(cfg.Flac.BaseURL),
			flac.WithHTTPClient(httpPlugin.Client(cfg.HTTP.Timeout, fetch.DefaultMaxRedirects)),
		),
	}, nil
}

// Builder returns a host builder with every plugin and the file_exists command registered
func (d *Dependencies) Builder(opts ...host.Option) *host.Builder {
	return host.NewBuilder(opts...).
		Plugin(d.Upload).
		Plugin(d.Dialog).
		Plugin(d.HTTP).
		Plugin(d.Shell).
		InvokeHandler(FileExistsCommand, fileExistsHandler(d.Paths))
}

// fileExistsArgs keeps Value a pointer so a missing key is not read as the empty path
type fileExistsArgs struct {
	Value *string `json:"value"`
}

func fileExistsHandler(paths *apppathcheck.Service) host.Handler {
	return host.Typed(func(_ context.Context, _ *host.Invocation, args fileExistsArgs) (any, error) {
		if args.Value == nil {
			return nil, fmt.Errorf("%w for %s: missing required key value", host.ErrInvalidArgs, FileExistsCommand)
		}
		msg, err := paths.CheckFileExists(*args.Value)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})
}
