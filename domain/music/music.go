package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrSongIDRequired is returned when a link is requested without a song ID
	ErrSongIDRequired = errors.New("songID is empty")

	// ErrUnlockCodeRequired is returned when an unlock code is needed but missing
	ErrUnlockCodeRequired = errors.New("unlockCode is empty")
)

// Music is one track in the catalogue
type Music struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Singers   []string `json:"singers"`
	AlbumName string   `json:"albumName"`
	AlbumID   string   `json:"albumId"`
	PicURL    string   `json:"picUrl"`
	Platform  string   `json:"platform"`
	HasMV     bool     `json:"hasMV"`
	HasHQ     bool     `json:"hasHQ"`
	HasSQ     bool     `json:"hasSQ"`
	HasAlbum  bool     `json:"hasAlbum"`
}

// List is one page of search results
type List struct {
	Total int     `json:"total"`
	List  []Music `json:"list"`
}

// Envelope wraps every API response
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	Result    T      `json:"result"`
	Timestamp int64  `json:"timestamp"`
}

// Catalogue defines the interface for the remote music API
type Catalogue interface {
	// Search returns one page of tracks matching keyword
	Search(ctx context.Context, keyword string, page, size int) (*List, error)

	// Link resolves a download URL for a track at the given quality
	Link(ctx context.Context, songID, quality, unlockCode string) (string, error)

	// Unlock redeems an unlock code and returns the raw result
	Unlock(ctx context.Context, code string) (json.RawMessage, error)
}

// Artist returns the singers joined for display
func (m Music) Artist() string {
	return strings.Join(m.Singers, ", ")
}

// FileName returns "<name> - <singers>.<ext>" with path separators replaced
func (m Music) FileName(ext string) string {
	base := m.Name
	if artist := m.Artist(); artist != "" {
		base = fmt.Sprintf("%s - %s", base, artist)
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = m.ID
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// Path returns the target path of the track inside dir
func (m Music) Path(dir, ext string) string {
	return filepath.Join(dir, m.FileName(ext))
}

// ProgressFunc receives the bytes moved so far and the expected total (0 when unknown)
type ProgressFunc func(done, total int64)

// Transfer defines the interface for streaming a remote file to disk
type Transfer interface {
	// Fetch downloads url into path, replacing path only on success
	Fetch(ctx context.Context, url, path string, headers map[string]string, progress ProgressFunc) error
}
