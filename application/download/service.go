package download

import (
	"context"
	"errors"
	"fmt"
	"io"

	apppathcheck "flacdesk/application/pathcheck"
	"flacdesk/domain/music"
	"flacdesk/domain/pathcheck"
)

// ErrDownloadSkipped is returned when the target exists and the user keeps it
var ErrDownloadSkipped = errors.New("download skipped: file already exists")

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(message string, defaultValue bool) (bool, error)
}

// Request describes one track to download
type Request struct {
	Music      music.Music
	Quality    string
	UnlockCode string
	Directory  string
}

// Result contains the outcome of a download
type Result struct {
	Path      string
	URL       string
	Overwrote bool
}

// Service guards a download with the file_exists pre-flight check
type Service struct {
	catalogue music.Catalogue
	transfer  music.Transfer
	paths     *apppathcheck.Service
	confirmer Confirmer
	headers   map[string]string
	output    io.Writer
}

// NewService creates a new download service
func NewService(
	catalogue music.Catalogue,
	transfer music.Transfer,
	paths *apppathcheck.Service,
	confirmer Confirmer,
	headers map[string]string,
	output io.Writer,
) *Service {
	if output == nil {
		output = io.Discard
	}
	return &Service{
		catalogue: catalogue,
		transfer:  transfer,
		paths:     paths,
		confirmer: confirmer,
		headers:   headers,
		output:    output,
	}
}

// Download resolves the track link and saves it under req.Directory
func (s *Service) Download(ctx context.Context, req Request, progress music.ProgressFunc) (*Result, error) {
	target := req.Music.Path(req.Directory, "flac")

	overwrite := false
	if _, err := s.paths.CheckFileExists(target); errors.Is(err, pathcheck.ErrFileExists) {
		ok, err := s.confirmer.Confirm(fmt.Sprintf("%s already exists. Overwrite?", req.Music.FileName("flac")), false)
		if err != nil {
			return nil, fmt.Errorf("overwrite confirmation failed: %w", err)
		}
		if !ok {
			return nil, ErrDownloadSkipped
		}
		overwrite = true
	}

	link, err := s.catalogue.Link(ctx, req.Music.ID, req.Quality, req.UnlockCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve link for %s: %w", req.Music.Name, err)
	}

	if overwrite {
		fmt.Fprintf(s.output, "Replacing existing %s\n", req.Music.FileName("flac"))
	}
	if err := s.transfer.Fetch(ctx, link, target, s.headers, progress); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", req.Music.Name, err)
	}

	return &Result{
		Path:      target,
		URL:       link,
		Overwrote: overwrite,
	}, nil
}
