package playlist

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Track identifies one playable Bilibili audio stream. Bvid names the video
// container, Cid the sub-stream inside it. Title and Owner are display
// metadata only.
type Track struct {
	Bvid  string `toml:"bvid"`
	Cid   string `toml:"cid"`
	Title string `toml:"title,omitempty"`
	Owner string `toml:"owner,omitempty"`
}

type document struct {
	Tracks []Track `toml:"tracks"`
}

var (
	// ErrEmpty reports a playlist file that parsed fine but holds no tracks.
	ErrEmpty = errors.New("playlist has no tracks")
	// ErrOutOfBounds reports a cursor pointing past the active playlist.
	ErrOutOfBounds = errors.New("track index out of bounds")
)

// ParseFile reads and decodes a playlist file without touching any store.
// An empty or whitespace-only file decodes to zero tracks, not an error.
func ParseFile(path string) ([]Track, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	var doc document
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse playlist: %w", err)
	}
	return doc.Tracks, nil
}

// WriteFile encodes tracks back to disk in the [[tracks]] layout the daemon
// reads. Used by the playlist-editing client.
func WriteFile(path string, tracks []Track) error {
	out, err := toml.Marshal(document{Tracks: tracks})
	if err != nil {
		return fmt.Errorf("encode playlist: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}
